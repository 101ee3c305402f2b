package likes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/internal/repo"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
)

const reconcileSQL = `UPDATE wishes
SET likes_count = (SELECT COUNT(*) FROM likes l WHERE l.wish_id = wishes.id)
WHERE likes_count <> (SELECT COUNT(*) FROM likes l WHERE l.wish_id = wishes.id)`

// Repository persists likes and the denormalized counter on wishes.
type Repository struct {
	repo.Base
}

// NewRepository constructs a likes repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Insert adds the pair.
func (r *Repository) Insert(ctx context.Context, userID, wishID uuid.UUID) error {
	return r.DB(ctx).Create(&models.Like{UserID: userID, WishID: wishID}).Error
}

// Remove deletes the pair and returns the number of rows removed.
func (r *Repository) Remove(ctx context.Context, userID, wishID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("user_id = ? AND wish_id = ?", userID, wishID).
		Delete(&models.Like{})
	return res.RowsAffected, res.Error
}

// Increment applies likes_count + 1.
func (r *Repository) Increment(ctx context.Context, wishID uuid.UUID) error {
	return r.DB(ctx).Model(&models.Wish{}).
		Where("id = ?", wishID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
}

// Decrement applies likes_count - 1 and never goes below zero.
func (r *Repository) Decrement(ctx context.Context, wishID uuid.UUID) error {
	return r.DB(ctx).Model(&models.Wish{}).
		Where("id = ? AND likes_count > 0", wishID).
		UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error
}

// CountFor reads the stored counter of wishID.
func (r *Repository) CountFor(ctx context.Context, wishID uuid.UUID) (int, error) {
	var count int
	err := r.DB(ctx).Model(&models.Wish{}).
		Select("likes_count").
		Where("id = ?", wishID).
		Scan(&count).Error
	return count, err
}

// WishIDsFor returns the ids userID has liked, newest like first.
func (r *Repository) WishIDsFor(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("wish_id", &ids).Error
	return ids, err
}

// Total counts every like row.
func (r *Repository) Total(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Like{}).Count(&count).Error
	return count, err
}

// Reconcile recomputes likes_count from the likes relation and returns the
// number of wishes that drifted.
func (r *Repository) Reconcile(ctx context.Context) (int64, error) {
	res := r.DB(ctx).Exec(reconcileSQL)
	return res.RowsAffected, res.Error
}
