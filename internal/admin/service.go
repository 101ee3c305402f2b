// Package admin serves the moderation dashboard aggregates.
package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
)

// Stats is the read-only dashboard summary.
type Stats struct {
	Profiles int64 `json:"profiles"`
	Wishes   int64 `json:"wishes"`
	Likes    int64 `json:"likes"`
}

// Service exposes admin aggregates.
type Service interface {
	Stats(ctx context.Context, sess pkgAuth.Session) (*Stats, error)
}

// CountFunc returns the row count of one relation.
type CountFunc func(ctx context.Context) (int64, error)

// ServiceParams wires the count queries.
type ServiceParams struct {
	CountProfiles CountFunc
	CountWishes   CountFunc
	CountLikes    CountFunc
}

type service struct {
	profiles CountFunc
	wishes   CountFunc
	likes    CountFunc
}

// NewService builds the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.CountProfiles == nil || params.CountWishes == nil || params.CountLikes == nil {
		return nil, fmt.Errorf("admin counters are required")
	}
	return &service{
		profiles: params.CountProfiles,
		wishes:   params.CountWishes,
		likes:    params.CountLikes,
	}, nil
}

// Stats runs the three counts concurrently.
func (s *service) Stats(ctx context.Context, sess pkgAuth.Session) (*Stats, error) {
	if sess.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !sess.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var out Stats
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn CountFunc, what string) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count "+what)
			}
			*dst = n
			return nil
		})
	}
	count(&out.Profiles, s.profiles, "profiles")
	count(&out.Wishes, s.wishes, "wishes")
	count(&out.Likes, s.likes, "likes")
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
