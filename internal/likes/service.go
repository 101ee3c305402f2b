package likes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/internal/wishes"
	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/enums"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/outbox"
	"github.com/wishwall/wishwall-backend/pkg/outbox/payloads"
	"github.com/wishwall/wishwall-backend/pkg/realtime"
)

// SignInRequiredMessage is returned when an anonymous caller tries to like.
const SignInRequiredMessage = "sign in required to like wishes"

// Service toggles likes and lists the caller's liked wishes.
type Service interface {
	Toggle(ctx context.Context, sess pkgAuth.Session, wishID uuid.UUID) (*ToggleResult, error)
	LikedWishIDs(ctx context.Context, sess pkgAuth.Session) (*LikedIDs, error)
}

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the likes service.
type ServiceParams struct {
	DB        database
	Outbox    outbox.Emitter
	Publisher realtime.Publisher
	Logger    *logger.Logger
}

type service struct {
	db        database
	outbox    outbox.Emitter
	publisher realtime.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds a likes service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	emitter := params.Outbox
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	return &service{
		db:        params.DB,
		outbox:    emitter,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// Toggle flips the caller's like on wishID inside one transaction. The wish
// row lock serializes concurrent toggles on the same wish.
func (s *service) Toggle(ctx context.Context, sess pkgAuth.Session, wishID uuid.UUID) (*ToggleResult, error) {
	if sess.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, SignInRequiredMessage)
	}
	if wishID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wish id is required")
	}

	result := &ToggleResult{WishID: wishID}
	var wish *models.Wish
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		wish, err = wishes.NewRepository(tx).FindForUpdate(ctx, wishID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wish not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wish")
		}
		if !wish.IsPublic && !sess.Owns(wish.UserID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wish not found")
		}

		repo := NewRepository(tx)
		removed, err := repo.Remove(ctx, sess.UserID, wishID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove like")
		}
		if removed > 0 {
			err = repo.Decrement(ctx, wishID)
		} else {
			if err := repo.Insert(ctx, sess.UserID, wishID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert like")
			}
			result.Liked = true
			err = repo.Increment(ctx, wishID)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust likes count")
		}

		if result.LikesCount, err = repo.CountFor(ctx, wishID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read likes count")
		}
		return s.emit(ctx, tx, sess, result)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		ctx = s.logg.WithWishID(ctx, wishID.String())
		s.logg.Info(s.logg.WithField(ctx, "liked", result.Liked), "like.toggled")
	}
	s.publish(ctx, realtime.Change{
		Table:      realtime.TableWishes,
		Op:         enums.ChangeUpdate,
		WishID:     wishID,
		UserID:     wish.UserID,
		IsPublic:   wish.IsPublic,
		WasPublic:  wish.IsPublic,
		OccurredAt: s.now().UTC(),
	})
	return result, nil
}

// LikedWishIDs returns the wishes the caller has liked.
func (s *service) LikedWishIDs(ctx context.Context, sess pkgAuth.Session) (*LikedIDs, error) {
	if sess.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ids, err := NewRepository(s.db.DB()).WishIDsFor(ctx, sess.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list liked wishes")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &LikedIDs{WishIDs: ids}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, sess pkgAuth.Session, result *ToggleResult) error {
	eventType := enums.EventWishUnliked
	if result.Liked {
		eventType = enums.EventWishLiked
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateLike,
		AggregateID:   result.WishID,
		Actor:         outbox.ActorFromSession(sess),
		Data: payloads.LikeEvent{
			WishID:     result.WishID,
			UserID:     sess.UserID,
			Liked:      result.Liked,
			LikesCount: result.LikesCount,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit outbox event")
	}
	return nil
}

func (s *service) publish(ctx context.Context, change realtime.Change) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, change); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "realtime.publish_failed")
	}
}
