package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/transfer-engine/store/memory"
	"github.com/pitchside/transfer-engine/transfer"
)

func seedPlayer(t *testing.T, s *memory.Store) transfer.Player {
	t.Helper()
	p := transfer.Player{
		ID:          uuid.New(),
		FirstName:   "Test",
		LastName:    "Player",
		YearOfBirth: 2000,
		Position:    transfer.PositionMF,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.CreatePlayer(context.Background(), p))
	return p
}

func event(playerID, toClub uuid.UUID, date transfer.Date) transfer.HistoryEvent {
	return transfer.HistoryEvent{
		ID:          uuid.New(),
		PlayerID:    playerID,
		Type:        transfer.EventTransfer,
		EventDate:   date,
		ToClubID:    &toClub,
		MarketValue: decimal.NewFromInt(1),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestLatestEventBefore_TieBrokenByInsertion(t *testing.T) {
	// Two events on the same date: the later insertion must win, and a
	// backdated insertion must not displace it.

	store := memory.New()
	ctx := context.Background()
	player := seedPlayer(t, store)

	day := transfer.NewDate(2024, time.July, 1)
	clubA, clubB := uuid.New(), uuid.New()

	require.NoError(t, store.InsertHistoryEvent(ctx, event(player.ID, clubA, day)))
	require.NoError(t, store.InsertHistoryEvent(ctx, event(player.ID, clubB, day)))

	latest, err := store.LatestEventBefore(ctx, player.ID, day)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, clubB, *latest.ToClubID)
}

func TestLatestEventBefore_IgnoresFutureEvents(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	player := seedPlayer(t, store)

	past, future := uuid.New(), uuid.New()
	require.NoError(t, store.InsertHistoryEvent(ctx, event(player.ID, past, transfer.NewDate(2024, time.January, 1))))
	require.NoError(t, store.InsertHistoryEvent(ctx, event(player.ID, future, transfer.NewDate(2024, time.December, 1))))

	latest, err := store.LatestEventBefore(ctx, player.ID, transfer.NewDate(2024, time.June, 1))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, past, *latest.ToClubID)
}

func TestListHistoryEvents_BackdatedInsertSortsByDate(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	player := seedPlayer(t, store)

	require.NoError(t, store.InsertHistoryEvent(ctx, event(player.ID, uuid.New(), transfer.NewDate(2024, time.June, 1))))
	require.NoError(t, store.InsertHistoryEvent(ctx, event(player.ID, uuid.New(), transfer.NewDate(2024, time.January, 1))))

	events, err := store.ListHistoryEvents(ctx, player.ID, transfer.Asc)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2024-01-01", events[0].EventDate.String())
	assert.Equal(t, "2024-06-01", events[1].EventDate.String())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that writes then fails
	// WHEN: WithTx returns the error
	// THEN: None of the writes survive

	store := memory.New()
	ctx := context.Background()
	player := seedPlayer(t, store)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s transfer.Store) error {
		if err := s.InsertHistoryEvent(ctx, event(player.ID, uuid.New(), transfer.NewDate(2024, time.July, 1))); err != nil {
			return err
		}
		if err := s.InsertValuePoint(ctx, transfer.ValuePoint{
			ID: uuid.New(), PlayerID: player.ID,
			Date: transfer.NewDate(2024, time.July, 1), Value: decimal.NewFromInt(5),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	events, err := store.ListHistoryEvents(ctx, player.ID, transfer.Asc)
	require.NoError(t, err)
	assert.Empty(t, events)

	points, err := store.ListValuePoints(ctx, player.ID, transfer.Asc)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	player := seedPlayer(t, store)

	day := transfer.NewDate(2024, time.July, 1)
	club := uuid.New()

	err := store.WithTx(ctx, func(s transfer.Store) error {
		if err := s.InsertHistoryEvent(ctx, event(player.ID, club, day)); err != nil {
			return err
		}
		latest, err := s.LatestEventBefore(ctx, player.ID, day)
		if err != nil {
			return err
		}
		require.NotNil(t, latest)
		assert.Equal(t, club, *latest.ToClubID)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateClub_DuplicateName(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.CreateClub(ctx, transfer.Club{ID: uuid.New(), Name: "Ajax"}))
	err := store.CreateClub(ctx, transfer.Club{ID: uuid.New(), Name: "AJAX"})
	assert.ErrorIs(t, err, transfer.ErrClubNameTaken)
}
