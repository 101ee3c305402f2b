package wishes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/internal/repo"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/pagination"
)

// ListQuery selects a page of wishes. A nil OwnerID lists every author.
type ListQuery struct {
	OwnerID    *uuid.UUID
	PublicOnly bool
	Cursor     *pagination.Cursor
	Limit      int
}

// Repository persists wishes.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, wish *models.Wish) error {
	return r.DB(ctx).Create(wish).Error
}

// FindByID loads a wish with its author.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wish, error) {
	var wish models.Wish
	if err := r.DB(ctx).Joins("Author").First(&wish, "wishes.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wish, nil
}

// FindForUpdate loads and row-locks a wish. It must run inside a transaction.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Wish, error) {
	var wish models.Wish
	if err := r.ForUpdate(ctx).First(&wish, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wish, nil
}

// Update writes the editable columns and reports how many rows matched.
func (r *Repository) Update(ctx context.Context, wish *models.Wish) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Wish{}).
		Where("id = ?", wish.ID).
		Updates(map[string]any{
			"title":      wish.Title,
			"content":    wish.Content,
			"image_url":  wish.ImageURL,
			"is_public":  wish.IsPublic,
			"updated_at": wish.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}

// Delete removes a wish and its likes.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.DB(ctx).Where("wish_id = ?", id).Delete(&models.Like{}).Error; err != nil {
		return 0, err
	}
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Wish{})
	return res.RowsAffected, res.Error
}

// List returns up to q.Limit+1 rows newest first so callers can detect another page.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Wish, error) {
	query := r.DB(ctx).Model(&models.Wish{}).Joins("Author")
	if q.OwnerID != nil {
		query = query.Where("wishes.user_id = ?", *q.OwnerID)
	}
	if q.PublicOnly {
		query = query.Where("wishes.is_public = ?", true)
	}
	query = repo.NewestFirst(query, "wishes", q.Cursor)

	var rows []models.Wish
	if err := query.Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of wishes.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Wish{}).Count(&count).Error
	return count, err
}
