package controllers

import (
	"net/http"

	"github.com/wishwall/wishwall-backend/api/middleware"
	"github.com/wishwall/wishwall-backend/api/responses"
	"github.com/wishwall/wishwall-backend/api/validators"
	"github.com/wishwall/wishwall-backend/internal/likes"
	"github.com/wishwall/wishwall-backend/pkg/logger"
)

// ToggleLike flips the caller's like. Anonymous callers reach the service so it
// can answer with the sign-in error.
func ToggleLike(svc likes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, wishIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, _ := middleware.SessionFromContext(r.Context())
		result, err := svc.Toggle(r.Context(), sess, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func LikedWishIDs(svc likes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := requireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids, err := svc.LikedWishIDs(r.Context(), sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ids)
	}
}
