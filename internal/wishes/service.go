package wishes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	baserepo "github.com/wishwall/wishwall-backend/internal/repo"
	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/enums"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/outbox"
	"github.com/wishwall/wishwall-backend/pkg/outbox/payloads"
	"github.com/wishwall/wishwall-backend/pkg/pagination"
	"github.com/wishwall/wishwall-backend/pkg/realtime"
	"github.com/wishwall/wishwall-backend/pkg/validation"
)

const notFoundMessage = "wish not found"

// Page is one slice of a wish listing.
type Page = pagination.Page[WishDTO]

// Service implements wish CRUD and the three listings.
type Service interface {
	Create(ctx context.Context, sess pkgAuth.Session, input WishInput) (*WishDTO, error)
	Get(ctx context.Context, sess pkgAuth.Session, id uuid.UUID) (*WishDTO, error)
	Update(ctx context.Context, sess pkgAuth.Session, id uuid.UUID, input WishInput) (*WishDTO, error)
	Delete(ctx context.Context, sess pkgAuth.Session, id uuid.UUID) error
	ListMine(ctx context.Context, sess pkgAuth.Session, params pagination.Params) (*Page, error)
	ListPublic(ctx context.Context, params pagination.Params) (*Page, error)
	ListAll(ctx context.Context, sess pkgAuth.Session, params pagination.Params) (*Page, error)
}

// Lister is the read side used by the public feed.
type Lister interface {
	ListPublic(ctx context.Context, params pagination.Params) (*Page, error)
}

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the wish service dependencies.
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

func (s *service) Create(ctx context.Context, sess pkgAuth.Session, input WishInput) (*WishDTO, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	wish := &models.Wish{UserID: sess.UserID}
	apply(wish, input)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).Create(ctx, wish); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create wish")
		}
		return s.emit(ctx, tx, sess, enums.EventWishCreated, wish)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.Change{
		Op:        enums.ChangeInsert,
		WishID:    wish.ID,
		UserID:    wish.UserID,
		IsPublic:  wish.IsPublic,
		WasPublic: wish.IsPublic,
	})
	return s.load(ctx, wish.ID)
}

func (s *service) Get(ctx context.Context, sess pkgAuth.Session, id uuid.UUID) (*WishDTO, error) {
	wish, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if hiddenFrom(sess, wish) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return FromModel(wish), nil
}

// hiddenFrom reports whether wish is private to someone other than sess.
func hiddenFrom(sess pkgAuth.Session, wish *models.Wish) bool {
	return !wish.IsPublic && !sess.Owns(wish.UserID) && !sess.IsAdmin()
}

func (s *service) Update(ctx context.Context, sess pkgAuth.Session, id uuid.UUID, input WishInput) (*WishDTO, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var wasPublic, isPublic bool
	var ownerID uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		wish, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if hiddenFrom(sess, wish) {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		if !sess.Owns(wish.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can edit this wish")
		}

		wasPublic = wish.IsPublic
		apply(wish, input)
		wish.UpdatedAt = s.now().UTC()
		if _, err := repo.Update(ctx, wish); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wish")
		}
		isPublic = wish.IsPublic
		ownerID = wish.UserID
		return s.emit(ctx, tx, sess, enums.EventWishUpdated, wish)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.Change{
		Op:        enums.ChangeUpdate,
		WishID:    id,
		UserID:    ownerID,
		IsPublic:  isPublic,
		WasPublic: wasPublic,
	})
	return s.load(ctx, id)
}

func (s *service) Delete(ctx context.Context, sess pkgAuth.Session, id uuid.UUID) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	var removed models.Wish
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		wish, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if hiddenFrom(sess, wish) {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		if !sess.Owns(wish.UserID) && !sess.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin can delete this wish")
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete wish")
		}
		removed = *wish
		return s.emit(ctx, tx, sess, enums.EventWishDeleted, wish)
	})
	if err != nil {
		return err
	}

	if s.logg != nil && !sess.Owns(removed.UserID) {
		s.logg.Info(s.logg.WithWishID(ctx, id.String()), "wish.moderated")
	}
	s.publish(ctx, realtime.Change{
		Op:        enums.ChangeDelete,
		WishID:    id,
		UserID:    removed.UserID,
		IsPublic:  removed.IsPublic,
		WasPublic: removed.IsPublic,
	})
	return nil
}

func (s *service) ListMine(ctx context.Context, sess pkgAuth.Session, params pagination.Params) (*Page, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	owner := sess.UserID
	return s.list(ctx, ListQuery{OwnerID: &owner}, params)
}

func (s *service) ListPublic(ctx context.Context, params pagination.Params) (*Page, error) {
	return s.list(ctx, ListQuery{PublicOnly: true}, params)
}

func (s *service) ListAll(ctx context.Context, sess pkgAuth.Session, params pagination.Params) (*Page, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.list(ctx, ListQuery{}, params)
}

func (s *service) list(ctx context.Context, q ListQuery, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, validation.Field("cursor", "cursor is invalid")
	}
	q.Cursor = cursor
	q.Limit = pagination.NormalizeLimit(params.Limit)

	rows, err := NewRepository(s.db.DB()).List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishes")
	}
	page := pagination.Trim(fromModels(rows), q.Limit, func(w WishDTO) pagination.Cursor {
		return baserepo.CursorOf(w.CreatedAt, w.ID)
	})
	return &page, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Wish, error) {
	wish, err := NewRepository(s.db.DB()).FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	return wish, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*WishDTO, error) {
	wish, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(wish), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, sess pkgAuth.Session, eventType enums.OutboxEventType, wish *models.Wish) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWish,
		AggregateID:   wish.ID,
		Actor:         outbox.ActorFromSession(sess),
		Data: payloads.WishEvent{
			WishID:   wish.ID,
			UserID:   wish.UserID,
			Title:    wish.Title,
			IsPublic: wish.IsPublic,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit outbox event")
	}
	return nil
}

// publish announces a committed change. Failures are logged only.
func (s *service) publish(ctx context.Context, change realtime.Change) {
	if s.publisher == nil {
		return
	}
	change.Table = realtime.TableWishes
	change.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, change); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"wish_id": change.WishID.String(),
			"op":      string(change.Op),
			"error":   err.Error(),
		}), "realtime.publish_failed")
	}
}

func apply(wish *models.Wish, input WishInput) {
	wish.Title = strings.TrimSpace(input.Title)
	wish.Content = strings.TrimSpace(input.Content)
	wish.ImageURL = validation.NullableTrim(input.ImageURL)
	wish.IsPublic = true
	if input.IsPublic != nil {
		wish.IsPublic = *input.IsPublic
	}
}

func requireSession(sess pkgAuth.Session) error {
	if sess.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wish")
}
