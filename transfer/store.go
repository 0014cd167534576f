/*
store.go - Persistence interfaces

PURPOSE:
  The engine talks to an abstract relational store. Three
  implementations live under store/: memory (tests/dev), sqlite, and
  postgres. The interfaces are deliberately narrow - every method maps
  to one fixed-shape query.

APPEND-ONLY:
  There is no update or delete for history events or value points.
  Corrections are new dated entries.

ATOMICITY:
  TxStore.WithTx composes inserts into one atomic unit. The append
  engine uses it so a history event and its value point either both
  commit or neither is visible.
*/
package transfer

import (
	"context"

	"github.com/google/uuid"
)

// Order selects ascending or descending date order for list queries.
// Ties at equal dates are always broken by insertion sequence.
type Order int

const (
	Asc Order = iota
	Desc
)

// PlayerListRow is the roster projection row: the player plus only the
// latest affiliation and latest value, fetched top-1-per-group so a
// roster page never loads full histories.
type PlayerListRow struct {
	Player       Player
	ClubName     *string
	CurrentValue *ValuePoint
}

// Store is the abstract relational store the engine runs against.
type Store interface {
	// Players
	CreatePlayer(ctx context.Context, p Player) error
	FindPlayer(ctx context.Context, id uuid.UUID) (*Player, error)
	SetPlayerRetired(ctx context.Context, id uuid.UUID, retired bool) error

	// Clubs
	CreateClub(ctx context.Context, c Club) error
	FindClubByID(ctx context.Context, id uuid.UUID) (*Club, error)
	// FindClubByName matches case-insensitively on the full name.
	FindClubByName(ctx context.Context, name string) (*Club, error)
	// SearchClubsByName returns up to limit clubs whose name contains
	// the query (case-insensitive), ordered by name.
	SearchClubsByName(ctx context.Context, query string, limit int) ([]Club, error)

	// History chain
	// LatestEventBefore returns the most recent event with date <= the
	// given date, ties broken by insertion sequence (last wins), or nil.
	LatestEventBefore(ctx context.Context, playerID uuid.UUID, date Date) (*HistoryEvent, error)
	InsertHistoryEvent(ctx context.Context, e HistoryEvent) error
	ListHistoryEvents(ctx context.Context, playerID uuid.UUID, order Order) ([]HistoryEvent, error)

	// Value series
	InsertValuePoint(ctx context.Context, v ValuePoint) error
	ListValuePoints(ctx context.Context, playerID uuid.UUID, order Order) ([]ValuePoint, error)
	LatestValuePoint(ctx context.Context, playerID uuid.UUID) (*ValuePoint, error)

	// Roster projection: one page of players with top-1 event club name
	// and top-1 value each. Returns rows and the total player count.
	ListPlayersWithLatest(ctx context.Context, page, pageSize int) ([]PlayerListRow, int, error)
}

// TxStore is a Store that can execute a function atomically. The store
// passed to fn sees uncommitted writes made within the same call.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
