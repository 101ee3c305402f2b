package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	"github.com/wishwall/wishwall-backend/pkg/db/dbtest"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/enums"
)

func pkgAuthSession(userID uuid.UUID) pkgAuth.Session {
	return pkgAuth.Session{UserID: userID, Role: enums.RoleUser}
}

func insertRow(t *testing.T, repo *Repository, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWishUpdated,
		AggregateType: enums.AggregateWish,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, repo.Insert(repo.db, row))
	return row
}

func TestFetchUnpublishedOrdersAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	base := time.Now().UTC().Add(-time.Hour)

	second := insertRow(t, repo, base.Add(time.Minute))
	first := insertRow(t, repo, base)
	parked := insertRow(t, repo, base.Add(2*time.Minute))
	done := insertRow(t, repo, base.Add(3*time.Minute))

	require.NoError(t, repo.MarkTerminal(ctx, parked.ID, 3, errors.New("bad payload")))
	require.NoError(t, repo.MarkPublished(ctx, done.ID))

	rows, err := repo.FetchUnpublished(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, first.ID, rows[0].ID)
	require.Equal(t, second.ID, rows[1].ID)

	pending, err := repo.CountPending(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, pending)
}

func TestMarkFailedCountsAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	row := insertRow(t, repo, time.Now().UTC())

	require.NoError(t, repo.MarkFailed(ctx, row.ID, errors.New("timeout")))
	require.NoError(t, repo.MarkFailed(ctx, row.ID, errors.New("timeout again")))

	var got models.OutboxEvent
	require.NoError(t, repo.db.First(&got, "id = ?", row.ID).Error)
	require.Equal(t, 2, got.AttemptCount)
	require.NotNil(t, got.LastError)
	require.Equal(t, "timeout again", *got.LastError)

	rows, err := repo.FetchUnpublished(ctx, 10, 2)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestInsertRequiresTransaction(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	require.ErrorIs(t, repo.Insert(nil, models.OutboxEvent{}), ErrTxRequired)
}

func TestTruncateError(t *testing.T) {
	require.Equal(t, "", truncateError(nil))
	long := make([]byte, maxErrorLen+20)
	for i := range long {
		long[i] = 'x'
	}
	require.Len(t, truncateError(errors.New(string(long))), maxErrorLen)
}
