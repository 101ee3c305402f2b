package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/pkg/db/dbtest"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/enums"
	"github.com/wishwall/wishwall-backend/pkg/outbox/payloads"
)

func emitOne(t *testing.T, conn *gorm.DB, svc *Service, event DomainEvent) error {
	t.Helper()
	return conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	})
}

func TestEmitSharesRowAndEventID(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	wishID, userID := uuid.New(), uuid.New()
	err := emitOne(t, conn, svc, DomainEvent{
		EventType:     enums.EventWishCreated,
		AggregateType: enums.AggregateWish,
		AggregateID:   wishID,
		Actor:         &ActorRef{UserID: userID, Role: enums.RoleUser},
		Data:          payloads.WishEvent{WishID: wishID, UserID: userID, Title: "Kite", IsPublic: true},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, wishID, row.AggregateID)

	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	require.Equal(t, row.ID.String(), env.EventID)
	require.Equal(t, CurrentVersion, env.Version)
	require.True(t, env.OccurredAt.Equal(fixed))
	require.NotNil(t, env.Actor)
	require.Equal(t, userID, env.Actor.UserID)
	require.JSONEq(t, `{"wish_id":"`+wishID.String()+`","user_id":"`+userID.String()+`","title":"Kite","is_public":true}`, string(env.Data))
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventWishDeleted,
			AggregateType: enums.AggregateWish,
			AggregateID:   uuid.New(),
			Data:          payloads.WishEvent{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	valid := DomainEvent{
		EventType:     enums.EventWishLiked,
		AggregateType: enums.AggregateLike,
		AggregateID:   uuid.New(),
	}
	cases := map[string]struct {
		mutate func(*DomainEvent)
		want   error
	}{
		"event type":   {func(e *DomainEvent) { e.EventType = "wish_shared" }, ErrInvalidEventType},
		"aggregate":    {func(e *DomainEvent) { e.AggregateType = "profile" }, ErrInvalidAggregate},
		"aggregate id": {func(e *DomainEvent) { e.AggregateID = uuid.Nil }, ErrInvalidAggregate},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			event := valid
			tc.mutate(&event)
			require.ErrorIs(t, emitOne(t, conn, svc, event), tc.want)
		})
	}

	require.ErrorIs(t, svc.Emit(context.Background(), nil, valid), ErrTxRequired)
}

func TestActorFromSessionSkipsAnonymous(t *testing.T) {
	require.Nil(t, ActorFromSession(pkgAuthSession(uuid.Nil)))
	actor := ActorFromSession(pkgAuthSession(uuid.New()))
	require.NotNil(t, actor)
	require.Equal(t, enums.RoleUser, actor.Role)
}
