/*
ledger.go - The event append engine

PURPOSE:
  The only write path into the history chain and value series. Every
  append validates the candidate, resolves the source club from the
  chain, cross-checks references, and commits the event plus its value
  point as one atomic unit.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No update, no delete. Corrections are new entries.
  2. DERIVED SOURCE: FromClubID is computed by the resolver inside the
     same transaction and persisted - callers never supply it.
  3. PAIRED WRITES: A recorded transfer always produces a value point at
     the same date with the same value, atomically.
  4. NO PARTIAL STATE: Any failure (missing player, missing club,
     same-club violation, store error) leaves nothing behind.

CONCURRENCY:
  Each append is transactionally atomic, but the read-resolve-write
  sequence is not serialized across concurrent appends for the same
  player. Callers performing concurrent writes for one player must
  serialize externally. Expected write load is manual data entry.

WRITE NOTIFICATION:
  A subscriber can be attached to observe committed writes (cache
  busting, UI revalidation). It runs after commit and cannot affect the
  outcome.
*/
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WriteListener observes successful commits for a player. Called after
// the transaction commits; errors cannot be raised from it.
type WriteListener func(playerID uuid.UUID)

// Engine is the domain write/read facade: validation, chain resolution,
// atomic appends, and projections all hang off it.
type Engine struct {
	store   TxStore
	onWrite []WriteListener
	nowDate func() Date
}

// Option configures an Engine.
type Option func(*Engine)

// WithWriteListener attaches a post-commit subscriber.
func WithWriteListener(l WriteListener) Option {
	return func(e *Engine) { e.onWrite = append(e.onWrite, l) }
}

// withNow overrides the clock; used by tests.
func withNow(now func() Date) Option {
	return func(e *Engine) { e.nowDate = now }
}

func NewEngine(store TxStore, opts ...Option) *Engine {
	e := &Engine{store: store, nowDate: Today}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) notify(playerID uuid.UUID) {
	for _, l := range e.onWrite {
		l(playerID)
	}
}

// =============================================================================
// PLAYER REGISTRATION
// =============================================================================

// SavePlayer registers a player. When the input names a club, an
// initial TRANSFER event (from no club) is written; when it carries a
// value, an initial value point is written. Player, event, and point
// commit atomically.
func (e *Engine) SavePlayer(ctx context.Context, in PlayerInput) (*Player, error) {
	if err := ValidatePlayer(in); err != nil {
		return nil, err
	}

	date := e.nowDate()
	if in.Date != nil {
		date = *in.Date
	}

	player := Player{
		ID:          uuid.New(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		YearOfBirth: in.YearOfBirth,
		Position:    in.Position,
		CreatedAt:   time.Now().UTC(),
	}

	err := e.store.WithTx(ctx, func(s Store) error {
		if in.ClubID != nil {
			club, err := s.FindClubByID(ctx, *in.ClubID)
			if err != nil {
				return err
			}
			if club == nil {
				return ErrClubNotFound
			}
		}

		if err := s.CreatePlayer(ctx, player); err != nil {
			return fmt.Errorf("create player: %w", err)
		}

		if in.ClubID != nil {
			value := decimal.Zero
			if in.CurrentValue != nil {
				value = *in.CurrentValue
			}
			event := HistoryEvent{
				ID:          uuid.New(),
				PlayerID:    player.ID,
				Type:        EventTransfer,
				EventDate:   date,
				ToClubID:    in.ClubID,
				MarketValue: value,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.InsertHistoryEvent(ctx, event); err != nil {
				return fmt.Errorf("insert initial event: %w", err)
			}
		}

		if in.CurrentValue != nil {
			point := ValuePoint{
				ID:        uuid.New(),
				PlayerID:  player.ID,
				Date:      date,
				Value:     *in.CurrentValue,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.InsertValuePoint(ctx, point); err != nil {
				return fmt.Errorf("insert initial value: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(player.ID)
	return &player, nil
}

// CreateClub registers a club. Names are unique, case-insensitive.
func (e *Engine) CreateClub(ctx context.Context, name string) (*Club, error) {
	verr := &ValidationError{}
	if name == "" {
		verr.add("name", "club name is required")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	existing, err := e.store.FindClubByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrClubNameTaken
	}

	club := Club{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := e.store.CreateClub(ctx, club); err != nil {
		return nil, fmt.Errorf("create club: %w", err)
	}
	return &club, nil
}

// SetRetired toggles the retirement flag. Retirement does not touch the
// history chain.
func (e *Engine) SetRetired(ctx context.Context, playerID uuid.UUID, retired bool) error {
	player, err := e.store.FindPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil {
		return ErrPlayerNotFound
	}
	if err := e.store.SetPlayerRetired(ctx, playerID, retired); err != nil {
		return fmt.Errorf("set retired: %w", err)
	}
	e.notify(playerID)
	return nil
}

// =============================================================================
// TRANSFER APPEND - The core write path
// =============================================================================

// RecordTransfer appends a history event and its paired value point.
//
// Order of checks: event shape (consistency), field validation, then -
// inside the transaction - player existence, destination existence,
// chain resolution, and the same-club rule. The resolved source club is
// persisted on the event.
func (e *Engine) RecordTransfer(ctx context.Context, playerID uuid.UUID, in TransferInput) (*HistoryEvent, error) {
	if err := checkEventShape(in); err != nil {
		return nil, err
	}
	if err := ValidateTransfer(in); err != nil {
		return nil, err
	}

	event := HistoryEvent{
		ID:          uuid.New(),
		PlayerID:    playerID,
		Type:        in.Type,
		EventDate:   in.Date,
		ToClubID:    in.ToClubID,
		MarketValue: in.MarketValue,
		CreatedAt:   time.Now().UTC(),
	}
	if in.Type == EventLoan {
		event.LoanEndAt = in.LoanEnd
	} else {
		event.Fee = in.Fee
	}

	err := e.store.WithTx(ctx, func(s Store) error {
		player, err := s.FindPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if player == nil {
			return ErrPlayerNotFound
		}

		if in.ToClubID != nil {
			club, err := s.FindClubByID(ctx, *in.ToClubID)
			if err != nil {
				return err
			}
			if club == nil {
				return ErrClubNotFound
			}
		}

		source, err := ResolveSourceClub(ctx, s, playerID, in.Date)
		if err != nil {
			return err
		}
		if sameClub(in.ToClubID, source) {
			return newConsistencyError(ConsistencySameClub,
				"destination club equals the player's current club")
		}

		event.FromClubID = source
		if in.Type == EventLoan {
			// The parent keeps ownership for the duration of the loan.
			event.LoanParentID = source
		}

		if err := s.InsertHistoryEvent(ctx, event); err != nil {
			return fmt.Errorf("insert history event: %w", err)
		}

		point := ValuePoint{
			ID:        uuid.New(),
			PlayerID:  playerID,
			Date:      in.Date,
			Value:     in.MarketValue,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.InsertValuePoint(ctx, point); err != nil {
			return fmt.Errorf("insert value point: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(playerID)
	return &event, nil
}

// RecordValue appends a standalone value sample. Value points are
// independent samples; no cross-validation against the history chain.
func (e *Engine) RecordValue(ctx context.Context, playerID uuid.UUID, in ValueInput) (*ValuePoint, error) {
	if err := ValidateValue(in); err != nil {
		return nil, err
	}

	player, err := e.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	point := ValuePoint{
		ID:        uuid.New(),
		PlayerID:  playerID,
		Date:      in.Date,
		Value:     in.Value,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertValuePoint(ctx, point); err != nil {
		return nil, fmt.Errorf("insert value point: %w", err)
	}

	e.notify(playerID)
	return &point, nil
}
