package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wishwall/wishwall-backend/internal/profiles"
	"github.com/wishwall/wishwall-backend/internal/users"
	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	"github.com/wishwall/wishwall-backend/pkg/auth/session"
	"github.com/wishwall/wishwall-backend/pkg/db"
	"github.com/wishwall/wishwall-backend/pkg/db/dbtest"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	redisclient "github.com/wishwall/wishwall-backend/pkg/redis"
	"github.com/wishwall/wishwall-backend/pkg/security"
)

func newRegisterService(t *testing.T) (RegisterService, Service, *session.Manager, *db.Client) {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)

	srv := miniredis.RunT(t)
	rc := redisclient.NewFromRedis(redislib.NewClient(&redislib.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	manager, err := session.NewManager(rc, testJWT)
	require.NoError(t, err)

	hasher, err := security.NewHasher(fastArgon)
	require.NoError(t, err)

	authSvc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		ProfileRepo:    profiles.NewRepository(conn),
		SessionManager: manager,
		Hasher:         hasher,
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)

	registerSvc, err := NewRegisterService(RegisterServiceParams{DB: client, Hasher: hasher, Signer: authSvc})
	require.NoError(t, err)
	return registerSvc, authSvc, manager, client
}

func TestRegisterCreatesUserAndProfileThenSignsIn(t *testing.T) {
	svc, _, manager, client := newRegisterService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:    " New.User@Example.com ",
		Password: "secret1",
		FullName: "  New User ",
		City:     strPtr(""),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "New User", resp.Profile.FullName)
	require.Nil(t, resp.Profile.City)
	require.False(t, resp.Session.IsAdmin)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	live, err := manager.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	require.True(t, live)

	var user models.User
	require.NoError(t, client.DB().First(&user, "id = ?", resp.Session.UserID).Error)
	require.Equal(t, "new.user@example.com", user.Email)
}

func TestRegisterPasswordCountsSurroundingSpaces(t *testing.T) {
	svc, authSvc, _, _ := newRegisterService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "spaced@example.com", Password: "abc   ", FullName: "Spaced User"})
	require.NoError(t, err)

	_, err = authSvc.SignIn(ctx, LoginRequest{Email: "spaced@example.com", Password: "abc   "})
	require.NoError(t, err)
	_, err = authSvc.SignIn(ctx, LoginRequest{Email: "spaced@example.com", Password: "abc"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, client := newRegisterService(t)
	ctx := context.Background()

	req := RegisterRequest{Email: "dup@example.com", Password: "secret1", FullName: "Dup User"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	req.Email = "DUP@example.com"
	_, err = svc.Register(ctx, req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, client.DB().Model(&models.Profile{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, client := newRegisterService(t)

	cases := map[string]struct {
		req   RegisterRequest
		field string
		msg   string
	}{
		"bad email":      {RegisterRequest{Email: "nope", Password: "secret1", FullName: "Al Bo"}, "email", "email must be a valid email"},
		"short password": {RegisterRequest{Email: "a@example.com", Password: "12345", FullName: "Al Bo"}, "password", "password must be at least 6 characters"},
		"short name":     {RegisterRequest{Email: "a@example.com", Password: "secret1", FullName: " A "}, "full_name", "full_name must be at least 2 characters"},
		"long city":      {RegisterRequest{Email: "a@example.com", Password: "secret1", FullName: "Al Bo", City: strPtr(strings.Repeat("c", 101))}, "city", "city must be at most 100 characters"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, pkgerrors.CodeValidation, typed.Code())
			require.Equal(t, tc.msg, typed.Details().(map[string]string)[tc.field])
		})
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRegisteredUserCanRefreshAndSignOut(t *testing.T) {
	svc, authSvc, manager, _ := newRegisterService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Email: "flow@example.com", Password: "secret1", FullName: "Flow User"})
	require.NoError(t, err)

	pair, err := authSvc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	oldClaims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	live, err := manager.HasSession(ctx, oldClaims.ID)
	require.NoError(t, err)
	require.False(t, live)

	newClaims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, authSvc.SignOut(ctx, pkgAuth.SessionFromClaims(newClaims)))
	live, err = manager.HasSession(ctx, newClaims.ID)
	require.NoError(t, err)
	require.False(t, live)
}
