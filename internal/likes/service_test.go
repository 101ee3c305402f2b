package likes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	"github.com/wishwall/wishwall-backend/pkg/db"
	"github.com/wishwall/wishwall-backend/pkg/db/dbtest"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/enums"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	"github.com/wishwall/wishwall-backend/pkg/outbox"
	"github.com/wishwall/wishwall-backend/pkg/realtime"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c realtime.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func newLikes(t *testing.T) (Service, *gorm.DB, *recordingPublisher) {
	t.Helper()
	conn := dbtest.Open(t)
	pub := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		DB:        db.NewFromConn(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Publisher: pub,
	})
	require.NoError(t, err)
	return svc, conn, pub
}

func userSession(u *models.User) pkgAuth.Session {
	return pkgAuth.Session{UserID: u.ID, Role: enums.RoleUser}
}

func storedCount(t *testing.T, conn *gorm.DB, wishID uuid.UUID) int {
	t.Helper()
	var wish models.Wish
	require.NoError(t, conn.First(&wish, "id = ?", wishID).Error)
	return wish.LikesCount
}

func TestToggleLikeAndUnlike(t *testing.T) {
	svc, conn, pub := newLikes(t)
	author, _ := dbtest.MustCreateUser(t, conn, "Author One")
	fan, _ := dbtest.MustCreateUser(t, conn, "Fan Two")
	wish := dbtest.MustCreateWish(t, conn, author.ID, "Learn to sail", true, time.Now().UTC())
	ctx := context.Background()

	liked, err := svc.Toggle(ctx, userSession(fan), wish.ID)
	require.NoError(t, err)
	require.Equal(t, ToggleResult{WishID: wish.ID, Liked: true, LikesCount: 1}, *liked)
	require.Equal(t, 1, storedCount(t, conn, wish.ID))

	ids, err := svc.LikedWishIDs(ctx, userSession(fan))
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{wish.ID}, ids.WishIDs)

	unliked, err := svc.Toggle(ctx, userSession(fan), wish.ID)
	require.NoError(t, err)
	require.False(t, unliked.Liked)
	require.Zero(t, unliked.LikesCount)
	require.Zero(t, storedCount(t, conn, wish.ID))

	ids, err = svc.LikedWishIDs(ctx, userSession(fan))
	require.NoError(t, err)
	require.Empty(t, ids.WishIDs)

	var events []models.OutboxEvent
	require.NoError(t, conn.Order("created_at").Find(&events).Error)
	require.Len(t, events, 2)
	types := []enums.OutboxEventType{events[0].EventType, events[1].EventType}
	require.ElementsMatch(t, []enums.OutboxEventType{enums.EventWishLiked, enums.EventWishUnliked}, types)

	require.Len(t, pub.changes, 2)
	require.Equal(t, enums.ChangeUpdate, pub.changes[0].Op)
	require.True(t, realtime.PublicWishes().Match(pub.changes[0]))
}

func TestToggleCountsAcrossUsers(t *testing.T) {
	svc, conn, _ := newLikes(t)
	author, _ := dbtest.MustCreateUser(t, conn, "Author One")
	wish := dbtest.MustCreateWish(t, conn, author.ID, "Run a marathon", true, time.Now().UTC())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		fan, _ := dbtest.MustCreateUser(t, conn, "Fan")
		res, err := svc.Toggle(ctx, userSession(fan), wish.ID)
		require.NoError(t, err)
		require.Equal(t, i, res.LikesCount)
	}
	res, err := svc.Toggle(ctx, userSession(author), wish.ID)
	require.NoError(t, err)
	require.Equal(t, 4, res.LikesCount)
}

func TestToggleAnonymousDoesNotMutate(t *testing.T) {
	svc, conn, pub := newLikes(t)
	author, _ := dbtest.MustCreateUser(t, conn, "Author One")
	wish := dbtest.MustCreateWish(t, conn, author.ID, "Plant a tree", true, time.Now().UTC())

	_, err := svc.Toggle(context.Background(), pkgAuth.Session{}, wish.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	require.Equal(t, SignInRequiredMessage, typed.Message())
	require.Zero(t, storedCount(t, conn, wish.ID))
	require.Empty(t, pub.changes)
}

func TestToggleHiddenOrMissingWish(t *testing.T) {
	svc, conn, _ := newLikes(t)
	author, _ := dbtest.MustCreateUser(t, conn, "Author One")
	fan, _ := dbtest.MustCreateUser(t, conn, "Fan Two")
	private := dbtest.MustCreateWish(t, conn, author.ID, "Private goal", false, time.Now().UTC())
	ctx := context.Background()

	_, err := svc.Toggle(ctx, userSession(fan), private.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Zero(t, storedCount(t, conn, private.ID))

	own, err := svc.Toggle(ctx, userSession(author), private.ID)
	require.NoError(t, err)
	require.True(t, own.Liked)

	_, err = svc.Toggle(ctx, userSession(fan), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDecrementNeverBelowZero(t *testing.T) {
	conn := dbtest.Open(t)
	author, _ := dbtest.MustCreateUser(t, conn, "Author One")
	wish := dbtest.MustCreateWish(t, conn, author.ID, "Climb a hill", true, time.Now().UTC())

	require.NoError(t, NewRepository(conn).Decrement(context.Background(), wish.ID))
	require.Zero(t, storedCount(t, conn, wish.ID))
}

func TestReconcileRepairsDrift(t *testing.T) {
	conn := dbtest.Open(t)
	author, _ := dbtest.MustCreateUser(t, conn, "Author One")
	fan, _ := dbtest.MustCreateUser(t, conn, "Fan Two")
	drifted := dbtest.MustCreateWish(t, conn, author.ID, "Drifted", true, time.Now().UTC())
	steady := dbtest.MustCreateWish(t, conn, author.ID, "Steady", true, time.Now().UTC())
	ctx := context.Background()

	repo := NewRepository(conn)
	require.NoError(t, repo.Insert(ctx, fan.ID, drifted.ID))
	require.NoError(t, repo.Insert(ctx, author.ID, drifted.ID))
	require.NoError(t, conn.Model(&models.Wish{}).Where("id = ?", drifted.ID).UpdateColumn("likes_count", 7).Error)

	fixed, err := repo.Reconcile(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, fixed)
	require.Equal(t, 2, storedCount(t, conn, drifted.ID))
	require.Zero(t, storedCount(t, conn, steady.ID))

	total, err := repo.Total(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}
