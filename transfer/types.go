/*
Package transfer implements the player-transfer ledger engine.

PURPOSE:
  This package contains the domain core: players, clubs, and the
  append-only history of club-affiliation events (transfers and loans)
  with a parallel market-value time series. Everything else in the
  repository (stores, HTTP API) is plumbing around the rules defined
  here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar date pinned to UTC midnight (no time component)
  - HistoryEvent: An immutable affiliation change (TRANSFER or LOAN)
  - ValuePoint: A dated market-value sample
  - Player/Club: The entities the ledger hangs off

DESIGN PRINCIPLES:
  1. Append-only: History events and value points are never edited or
     deleted; corrections are new dated entries
  2. Derived source: The "from" club of an event is never supplied by
     callers - it is resolved from the chain and persisted
  3. Precision: decimal.Decimal for all monetary fields
  4. UTC days: All dates are truncated to UTC midnight so client-local
     timezones cannot shift an event by a day

SEE ALSO:
  - resolver.go: Chain resolution (who the player belongs to at a date)
  - ledger.go: The append engine enforcing chain consistency
  - projection.go: Timeline and summary read models
*/
package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE - Calendar date, UTC midnight
// =============================================================================

// Date is a calendar date with no time component. All dates in the
// ledger are normalized to UTC midnight on construction, which makes
// comparisons safe regardless of the timezone a client submitted.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string. The parse round-trips the
// components so impossible dates like 2024-02-30 are rejected rather
// than silently rolled over.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Before(other Date) bool      { return d.t.Before(other.t) }
func (d Date) After(other Date) bool       { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool       { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(o Date) bool   { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool    { return !d.t.Before(o.t) }
func (d Date) IsZero() bool                { return d.t.IsZero() }
func (d Date) Time() time.Time             { return d.t }
func (d Date) String() string              { return d.t.Format(dateLayout) }

// Display formats the date the way the UI shows it (dd/mm/yyyy).
func (d Date) Display() string { return d.t.Format("02/01/2006") }

// =============================================================================
// PLAYER
// =============================================================================

type Position string

const (
	PositionGK Position = "GK"
	PositionDF Position = "DF"
	PositionMF Position = "MF"
	PositionCF Position = "CF"
)

// Positions lists the valid values, in display order.
var Positions = []Position{PositionGK, PositionDF, PositionMF, PositionCF}

func (p Position) Valid() bool {
	switch p {
	case PositionGK, PositionDF, PositionMF, PositionCF:
		return true
	}
	return false
}

// Player is the entity a history chain belongs to. Players are created
// once and never hard-deleted; retirement is a flag, not a removal.
type Player struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	YearOfBirth int
	Position    Position
	IsRetired   bool
	CreatedAt   time.Time
}

func (p Player) FullName() string { return p.FirstName + " " + p.LastName }

// =============================================================================
// CLUB
// =============================================================================

// Club is immutable once created. Renames are out of scope; a rename
// would be a new club.
type Club struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// =============================================================================
// HISTORY EVENT - One link in the affiliation chain
// =============================================================================

type EventType string

const (
	EventTransfer EventType = "TRANSFER"
	EventLoan     EventType = "LOAN"
)

func (t EventType) Valid() bool { return t == EventTransfer || t == EventLoan }

// HistoryEvent records a single affiliation change.
//
// INVARIANTS (enforced at every write path, never assumed):
//   - Exactly one shape: a TRANSFER may carry a fee, a LOAN must carry
//     a loan-end date. Never both fee and loan-end on one event.
//   - LoanEndAt >= EventDate.
//   - FromClubID is resolver-derived at write time and persisted, so
//     the stored chain is auditable without re-derivation.
//   - FromClubID != ToClubID when both are set (no same-club transfer).
//
// A nil FromClubID means the player had no club before this event; a
// nil ToClubID on a TRANSFER means released to free agency. A LOAN
// always has a destination. LoanParentID is set only on LOAN events and
// names the club retaining ownership during the loan.
type HistoryEvent struct {
	ID           uuid.UUID
	PlayerID     uuid.UUID
	Type         EventType
	EventDate    Date
	FromClubID   *uuid.UUID
	ToClubID     *uuid.UUID
	LoanParentID *uuid.UUID
	LoanEndAt    *Date
	Fee          *decimal.Decimal
	MarketValue  decimal.Decimal

	// Seq is the store-assigned insertion sequence. Within a single
	// event date, the highest Seq wins chain resolution.
	Seq       int64
	CreatedAt time.Time
}

// ChainClubID returns the club of record after this event. During a
// loan the player still belongs to the loan parent - the loan is a
// temporary detour - so chain resolution looks through to the parent.
func (e *HistoryEvent) ChainClubID() *uuid.UUID {
	if e.Type == EventLoan {
		return e.LoanParentID
	}
	return e.ToClubID
}

// DisplayClubID returns the club the player is physically at after this
// event, which for a loan is the loan destination.
func (e *HistoryEvent) DisplayClubID() *uuid.UUID {
	return e.ToClubID
}

// =============================================================================
// VALUE POINT - Market value sample
// =============================================================================

// ValuePoint samples a player's market value at a date. Points are
// recorded independently of transfers, but every recorded transfer also
// writes a point at the event date so the value curve reflects
// transfer-driven valuations.
type ValuePoint struct {
	ID        uuid.UUID
	PlayerID  uuid.UUID
	Date      Date
	Value     decimal.Decimal
	Seq       int64
	CreatedAt time.Time
}
