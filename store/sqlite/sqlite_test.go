package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/transfer-engine/store/sqlite"
	"github.com/pitchside/transfer-engine/transfer"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPlayer(t *testing.T, s *sqlite.Store) transfer.Player {
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

func seedClub(t *testing.T, s *sqlite.Store, name string) transfer.Club {
	t.Helper()
	c := transfer.Club{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateClub(context.Background(), c))
	return c
}

func event(playerID uuid.UUID, toClub *uuid.UUID, date transfer.Date) transfer.HistoryEvent {
	return transfer.HistoryEvent{
		ID:          uuid.New(),
		PlayerID:    playerID,
		Type:        transfer.EventTransfer,
		EventDate:   date,
		ToClubID:    toClub,
		MarketValue: decimal.NewFromInt(1_000_000),
		CreatedAt:   time.Now().UTC(),
	}
}

// =============================================================================
// PLAYERS
// =============================================================================

func TestPlayer_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)

	got, err := store.FindPlayer(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.FirstName, got.FirstName)
	assert.Equal(t, p.Position, got.Position)
	assert.False(t, got.IsRetired)
}

func TestPlayer_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.FindPlayer(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetPlayerRetired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)

	require.NoError(t, store.SetPlayerRetired(ctx, p.ID, true))
	got, err := store.FindPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRetired)

	err = store.SetPlayerRetired(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, transfer.ErrPlayerNotFound)
}

// =============================================================================
// CLUBS
// =============================================================================

func TestClub_NameUniqueCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedClub(t, store, "Ajax")
	err := store.CreateClub(ctx, transfer.Club{ID: uuid.New(), Name: "AJAX", CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, transfer.ErrClubNameTaken)

	got, err := store.FindClubByName(ctx, "ajax")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ajax", got.Name)
}

func TestSearchClubsByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedClub(t, store, "Manchester United")
	seedClub(t, store, "Manchester City")
	seedClub(t, store, "Liverpool")

	clubs, err := store.SearchClubsByName(ctx, "Manchester", 10)
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	assert.Equal(t, "Manchester City", clubs[0].Name)

	clubs, err = store.SearchClubsByName(ctx, "Manchester", 1)
	require.NoError(t, err)
	assert.Len(t, clubs, 1)
}

// =============================================================================
// HISTORY EVENTS
// =============================================================================

func TestHistoryEvent_RoundTripAllFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)
	parent := seedClub(t, store, "Parent FC")
	dest := seedClub(t, store, "Dest FC")

	end := transfer.NewDate(2025, time.June, 30)
	e := transfer.HistoryEvent{
		ID:           uuid.New(),
		PlayerID:     p.ID,
		Type:         transfer.EventLoan,
		EventDate:    transfer.NewDate(2024, time.August, 30),
		FromClubID:   &parent.ID,
		ToClubID:     &dest.ID,
		LoanParentID: &parent.ID,
		LoanEndAt:    &end,
		MarketValue:  decimal.RequireFromString("12500000.50"),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.InsertHistoryEvent(ctx, e))

	events, err := store.ListHistoryEvents(ctx, p.ID, transfer.Asc)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, transfer.EventLoan, got.Type)
	assert.Equal(t, "2024-08-30", got.EventDate.String())
	assert.Equal(t, parent.ID, *got.FromClubID)
	assert.Equal(t, dest.ID, *got.ToClubID)
	assert.Equal(t, parent.ID, *got.LoanParentID)
	assert.Equal(t, "2025-06-30", got.LoanEndAt.String())
	assert.Nil(t, got.Fee)
	assert.True(t, got.MarketValue.Equal(decimal.RequireFromString("12500000.50")))
	assert.Positive(t, got.Seq)
}

func TestLatestEventBefore_TieBrokenBySeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)
	a := seedClub(t, store, "Alpha")
	b := seedClub(t, store, "Beta")

	day := transfer.NewDate(2024, time.July, 1)
	require.NoError(t, store.InsertHistoryEvent(ctx, event(p.ID, &a.ID, day)))
	require.NoError(t, store.InsertHistoryEvent(ctx, event(p.ID, &b.ID, day)))

	latest, err := store.LatestEventBefore(ctx, p.ID, day)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, b.ID, *latest.ToClubID)
}

func TestLatestEventBefore_NoHistory(t *testing.T) {
	store := newTestStore(t)
	p := seedPlayer(t, store)

	latest, err := store.LatestEventBefore(context.Background(), p.ID, transfer.Today())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestListHistoryEvents_Order(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)
	c := seedClub(t, store, "Club")

	require.NoError(t, store.InsertHistoryEvent(ctx, event(p.ID, &c.ID, transfer.NewDate(2024, time.June, 1))))
	require.NoError(t, store.InsertHistoryEvent(ctx, event(p.ID, nil, transfer.NewDate(2024, time.January, 1))))

	asc, err := store.ListHistoryEvents(ctx, p.ID, transfer.Asc)
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, "2024-01-01", asc[0].EventDate.String())

	desc, err := store.ListHistoryEvents(ctx, p.ID, transfer.Desc)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", desc[0].EventDate.String())
}

// =============================================================================
// VALUE POINTS
// =============================================================================

func TestValuePoints_LatestByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)

	insert := func(date transfer.Date, value int64) {
		require.NoError(t, store.InsertValuePoint(ctx, transfer.ValuePoint{
			ID: uuid.New(), PlayerID: p.ID, Date: date,
			Value: decimal.NewFromInt(value), CreatedAt: time.Now().UTC(),
		}))
	}
	insert(transfer.NewDate(2024, time.June, 1), 9)
	insert(transfer.NewDate(2024, time.January, 1), 4) // backdated

	latest, err := store.LatestValuePoint(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Value.Equal(decimal.NewFromInt(9)))

	series, err := store.ListValuePoints(ctx, p.ID, transfer.Asc)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].Date.String())
}

// =============================================================================
// ROSTER
// =============================================================================

func TestListPlayersWithLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	club := seedClub(t, store, "Ajax")

	names := []struct{ first, last string }{
		{"Aron", "Anders"}, {"Ben", "Berg"}, {"Carl", "Cruz"},
	}
	for _, n := range names {
		p := transfer.Player{
			ID: uuid.New(), FirstName: n.first, LastName: n.last,
			YearOfBirth: 2000, Position: transfer.PositionDF, CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.CreatePlayer(ctx, p))
		require.NoError(t, store.InsertHistoryEvent(ctx, event(p.ID, &club.ID, transfer.NewDate(2024, time.July, 1))))
		require.NoError(t, store.InsertValuePoint(ctx, transfer.ValuePoint{
			ID: uuid.New(), PlayerID: p.ID, Date: transfer.NewDate(2024, time.July, 1),
			Value: decimal.NewFromInt(1_000_000), CreatedAt: time.Now().UTC(),
		}))
	}

	rows, total, err := store.ListPlayersWithLatest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Anders", rows[0].Player.LastName)
	require.NotNil(t, rows[0].ClubName)
	assert.Equal(t, "Ajax", *rows[0].ClubName)
	require.NotNil(t, rows[0].CurrentValue)

	rows, _, err = store.ListPlayersWithLatest(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cruz", rows[0].Player.LastName)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)
	c := seedClub(t, store, "Ajax")

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s transfer.Store) error {
		if err := s.InsertHistoryEvent(ctx, event(p.ID, &c.ID, transfer.NewDate(2024, time.July, 1))); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	events, err := store.ListHistoryEvents(ctx, p.ID, transfer.Asc)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store)
	c := seedClub(t, store, "Ajax")

	day := transfer.NewDate(2024, time.July, 1)
	err := store.WithTx(ctx, func(s transfer.Store) error {
		if err := s.InsertHistoryEvent(ctx, event(p.ID, &c.ID, day)); err != nil {
			return err
		}
		latest, err := s.LatestEventBefore(ctx, p.ID, day)
		if err != nil {
			return err
		}
		require.NotNil(t, latest)
		assert.Equal(t, c.ID, *latest.ToClubID)
		return nil
	})
	require.NoError(t, err)
}
