package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/pkg/db"
	"github.com/wishwall/wishwall-backend/pkg/db/dbtest"
	"github.com/wishwall/wishwall-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	admin, err := repo.Create(ctx, NewUser{Email: "ada@example.com", PasswordHash: "hash", Role: enums.RoleAdmin})
	require.NoError(t, err)
	require.True(t, admin.IsActive)
	require.NotNil(t, admin.SystemRole)

	byEmail, err := repo.FindByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	require.Equal(t, admin.ID, byEmail.ID)
	require.Equal(t, enums.RoleAdmin, enums.RoleFromSystemRole(byEmail.SystemRole))

	_, err = repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.Create(ctx, NewUser{Email: "ada@example.com", PasswordHash: "hash"})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "users_email_key"))
}

func TestRepositoryPlainUserHasNoSystemRole(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))

	user, err := repo.Create(context.Background(), NewUser{Email: "lin@example.com", PasswordHash: "hash", Role: enums.RoleUser})
	require.NoError(t, err)
	require.Nil(t, user.SystemRole)
}

func TestRepositoryEmailTaken(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	taken, err := repo.EmailTaken(ctx, "grace@example.com")
	require.NoError(t, err)
	require.False(t, taken)

	_, err = repo.Create(ctx, NewUser{Email: "grace@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	taken, err = repo.EmailTaken(ctx, "GRACE@example.com")
	require.NoError(t, err)
	require.True(t, taken)
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, NewUser{Email: "grace@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	require.Nil(t, user.LastLoginAt)

	at := time.Date(2025, 10, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	require.True(t, reloaded.LastLoginAt.Equal(at))
}
