package wishes

import (
	"context"
	"strings"
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
	"github.com/wishwall/wishwall-backend/pkg/pagination"
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

func (p *recordingPublisher) last() realtime.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changes[len(p.changes)-1]
}

// untouchedDB fails the test on any database access.
type untouchedDB struct{ t *testing.T }

func (u untouchedDB) DB() *gorm.DB {
	u.t.Fatal("unexpected database access")
	return nil
}

func (u untouchedDB) WithTx(context.Context, func(tx *gorm.DB) error) error {
	u.t.Fatal("unexpected transaction")
	return nil
}

type fixture struct {
	svc  Service
	conn *gorm.DB
	pub  *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	pub := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		DB:        db.NewFromConn(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Publisher: pub,
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, pub: pub}
}

func sessionFor(user *models.User, role enums.Role) pkgAuth.Session {
	return pkgAuth.Session{UserID: user.ID, Role: role, AccessID: uuid.NewString()}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func validInput(title string) WishInput {
	return WishInput{Title: title, Content: "a wish worth keeping"}
}

func TestCreateDefaultsAndSideEffects(t *testing.T) {
	f := newFixture(t)
	user, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")
	ctx := context.Background()

	got, err := f.svc.Create(ctx, sessionFor(user, enums.RoleUser), WishInput{
		Title:    "  Visit Petra  ",
		Content:  "See the treasury at sunrise",
		ImageURL: strPtr(""),
	})
	require.NoError(t, err)
	require.Equal(t, "Visit Petra", got.Title)
	require.True(t, got.IsPublic)
	require.Zero(t, got.LikesCount)
	require.Nil(t, got.ImageURL)
	require.NotNil(t, got.Author)
	require.Equal(t, "Omar Khaled", got.Author.FullName)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventWishCreated, events[0].EventType)
	require.Equal(t, got.ID, events[0].AggregateID)

	change := f.pub.last()
	require.Equal(t, enums.ChangeInsert, change.Op)
	require.Equal(t, realtime.TableWishes, change.Table)
	require.True(t, change.IsPublic)
}

func TestCreatePrivateWish(t *testing.T) {
	f := newFixture(t)
	user, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")

	input := validInput("Secret plan")
	input.IsPublic = boolPtr(false)
	got, err := f.svc.Create(context.Background(), sessionFor(user, enums.RoleUser), input)
	require.NoError(t, err)
	require.False(t, got.IsPublic)
	require.False(t, realtime.PublicWishes().Match(f.pub.last()))
}

func TestValidationRunsBeforeDatabase(t *testing.T) {
	svc, err := NewService(ServiceParams{DB: untouchedDB{t}})
	require.NoError(t, err)
	sess := pkgAuth.Session{UserID: uuid.New(), Role: enums.RoleUser}

	cases := map[string]struct {
		input WishInput
		field string
		msg   string
	}{
		"two char title":  {WishInput{Title: "ab", Content: "long enough content"}, "title", "title must be at least 3 characters"},
		"long title":      {WishInput{Title: strings.Repeat("t", 121), Content: "long enough content"}, "title", "title must be at most 120 characters"},
		"short content":   {WishInput{Title: "abc", Content: "too short"}, "content", "content must be at least 10 characters"},
		"301 content":     {WishInput{Title: "abc", Content: strings.Repeat("c", 301)}, "content", "content must be at most 300 characters"},
		"bad image url":   {WishInput{Title: "abc", Content: "long enough content", ImageURL: strPtr("ftp://x")}, "image_url", "image_url must be a valid http(s) URL"},
		"padded to three": {WishInput{Title: "  ab  ", Content: "long enough content"}, "title", "title must be at least 3 characters"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), sess, tc.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, pkgerrors.CodeValidation, typed.Code())
			require.Equal(t, tc.msg, typed.Details().(map[string]string)[tc.field])

			_, err = svc.Update(context.Background(), sess, uuid.New(), tc.input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestBoundaryLengthsAccepted(t *testing.T) {
	f := newFixture(t)
	user, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")
	sess := sessionFor(user, enums.RoleUser)

	_, err := f.svc.Create(context.Background(), sess, WishInput{Title: "abc", Content: strings.Repeat("c", 300)})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), sess, WishInput{Title: strings.Repeat("é", 120), Content: strings.Repeat("ü", 10)})
	require.NoError(t, err)
}

func TestCreateRequiresSession(t *testing.T) {
	svc, err := NewService(ServiceParams{DB: untouchedDB{t}})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), pkgAuth.Session{}, validInput("abc"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateInPlace(t *testing.T) {
	f := newFixture(t)
	owner, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")
	stranger, _ := dbtest.MustCreateUser(t, f.conn, "Someone Else")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, sessionFor(owner, enums.RoleUser), validInput("Original"))
	require.NoError(t, err)

	prefill, err := f.svc.Get(ctx, sessionFor(owner, enums.RoleUser), created.ID)
	require.NoError(t, err)

	edit := WishInput{Title: prefill.Title + " edited", Content: prefill.Content, IsPublic: boolPtr(false)}
	updated, err := f.svc.Update(ctx, sessionFor(owner, enums.RoleUser), created.ID, edit)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "Original edited", updated.Title)
	require.False(t, updated.IsPublic)

	var count int64
	require.NoError(t, f.conn.Model(&models.Wish{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	change := f.pub.last()
	require.Equal(t, enums.ChangeUpdate, change.Op)
	require.True(t, change.WasPublic)
	require.False(t, change.IsPublic)
	require.True(t, realtime.PublicWishes().Match(change), "going private must refresh the public feed")

	// The wish is private now, so strangers cannot tell it exists.
	_, err = f.svc.Update(ctx, sessionFor(stranger, enums.RoleUser), created.ID, edit)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Update(ctx, sessionFor(owner, enums.RoleUser), uuid.New(), edit)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetPrivateVisibility(t *testing.T) {
	f := newFixture(t)
	owner, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")
	stranger, _ := dbtest.MustCreateUser(t, f.conn, "Someone Else")
	wish := dbtest.MustCreateWish(t, f.conn, owner.ID, "Private", false, time.Now().UTC())
	ctx := context.Background()

	_, err := f.svc.Get(ctx, sessionFor(owner, enums.RoleUser), wish.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, sessionFor(stranger, enums.RoleAdmin), wish.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, sessionFor(stranger, enums.RoleUser), wish.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPrivateWishMutationsLookMissingToStrangers(t *testing.T) {
	f := newFixture(t)
	owner, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")
	stranger, _ := dbtest.MustCreateUser(t, f.conn, "Someone Else")
	admin, _ := dbtest.MustCreateUser(t, f.conn, "Admin Person")
	public := dbtest.MustCreateWish(t, f.conn, owner.ID, "Public", true, time.Now().UTC())
	private := dbtest.MustCreateWish(t, f.conn, owner.ID, "Private", false, time.Now().UTC())
	ctx := context.Background()
	strangerSess := sessionFor(stranger, enums.RoleUser)

	_, err := f.svc.Update(ctx, strangerSess, public.ID, validInput("Hijack"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	err = f.svc.Delete(ctx, strangerSess, public.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Update(ctx, strangerSess, private.ID, validInput("Hijack"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	err = f.svc.Delete(ctx, strangerSess, private.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Update(ctx, sessionFor(admin, enums.RoleAdmin), private.ID, validInput("Moderated"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	require.NoError(t, f.svc.Delete(ctx, sessionFor(admin, enums.RoleAdmin), private.ID))
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t)
	owner, _ := dbtest.MustCreateUser(t, f.conn, "Omar Khaled")
	stranger, _ := dbtest.MustCreateUser(t, f.conn, "Someone Else")
	admin, _ := dbtest.MustCreateUser(t, f.conn, "Admin Person")
	ctx := context.Background()

	first := dbtest.MustCreateWish(t, f.conn, owner.ID, "First", true, time.Now().UTC().Add(-time.Minute))
	second := dbtest.MustCreateWish(t, f.conn, owner.ID, "Second", true, time.Now().UTC())
	require.NoError(t, f.conn.Create(&models.Like{UserID: stranger.ID, WishID: first.ID}).Error)

	err := f.svc.Delete(ctx, sessionFor(stranger, enums.RoleUser), first.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, f.svc.Delete(ctx, sessionFor(owner, enums.RoleUser), first.ID))
	var likes int64
	require.NoError(t, f.conn.Model(&models.Like{}).Where("wish_id = ?", first.ID).Count(&likes).Error)
	require.Zero(t, likes)

	change := f.pub.last()
	require.Equal(t, enums.ChangeDelete, change.Op)
	require.True(t, realtime.PublicWishes().Match(change))

	require.NoError(t, f.svc.Delete(ctx, sessionFor(admin, enums.RoleAdmin), second.ID))

	mine, err := f.svc.ListMine(ctx, sessionFor(owner, enums.RoleUser), pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, mine.Items)
	public, err := f.svc.ListPublic(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, public.Items)

	err = f.svc.Delete(ctx, sessionFor(owner, enums.RoleUser), first.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListingsOrderAndPaging(t *testing.T) {
	f := newFixture(t)
	alice, _ := dbtest.MustCreateUser(t, f.conn, "Alice Author")
	bob, _ := dbtest.MustCreateUser(t, f.conn, "Bob Builder")
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	w1 := dbtest.MustCreateWish(t, f.conn, alice.ID, "Oldest", true, base)
	w2 := dbtest.MustCreateWish(t, f.conn, bob.ID, "Hidden", false, base.Add(time.Minute))
	w3 := dbtest.MustCreateWish(t, f.conn, alice.ID, "Middle", true, base.Add(2*time.Minute))
	w4 := dbtest.MustCreateWish(t, f.conn, bob.ID, "Newest", true, base.Add(3*time.Minute))

	first, err := f.svc.ListPublic(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{w4.ID, w3.ID}, ids(first.Items))
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, "Bob Builder", first.Items[0].Author.FullName)

	second, err := f.svc.ListPublic(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{w1.ID}, ids(second.Items))
	require.Empty(t, second.NextCursor)

	mine, err := f.svc.ListMine(ctx, sessionFor(bob, enums.RoleUser), pagination.Params{})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{w4.ID, w2.ID}, ids(mine.Items))

	_, err = f.svc.ListAll(ctx, sessionFor(bob, enums.RoleUser), pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	all, err := f.svc.ListAll(ctx, sessionFor(alice, enums.RoleAdmin), pagination.Params{})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{w4.ID, w3.ID, w2.ID, w1.ID}, ids(all.Items))

	_, err = f.svc.ListPublic(ctx, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func ids(items []WishDTO) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
