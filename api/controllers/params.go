package controllers

import (
	"net/http"
	"strings"

	"github.com/wishwall/wishwall-backend/api/middleware"
	"github.com/wishwall/wishwall-backend/api/validators"
	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	"github.com/wishwall/wishwall-backend/pkg/pagination"
)

const wishIDParam = "wishId"

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func requireSession(r *http.Request) (pkgAuth.Session, error) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return pkgAuth.Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return sess, nil
}
