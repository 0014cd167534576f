/*
projection.go - Read models over the stored event and value sequences

PURPOSE:
  Reconstructs displayable state from the ledger: the transfer timeline
  (newest first), the player summary (current club and value), the value
  series for charting, and the paginated roster.

DISPLAY RULES:
  - The "left" column is the stored source club of each event; when nil
    it renders "Without Club", except on the oldest row where both empty
    sides render "-" (there is nothing the player could have left).
  - A loan row renders "on loan until <date>" in place of a fee.
  - A zero fee renders "Free transfer"; an absent fee renders "-".

The roster projection deliberately reads only the single most recent
event and value point per player via the store's top-1 query; it never
loads full histories.
*/
package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TIMELINE
// =============================================================================

// TimelineRow is one display row of a player's transfer history,
// already formatted for rendering.
type TimelineRow struct {
	EventID   uuid.UUID
	Date      Date
	Left      string
	Joined    string
	Value     string
	FeeOrLoan string
}

// PlayerTimeline returns the player's transfer history newest-first,
// formatted for display.
func (e *Engine) PlayerTimeline(ctx context.Context, playerID uuid.UUID) ([]TimelineRow, error) {
	player, err := e.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	events, err := e.store.ListHistoryEvents(ctx, playerID, Desc)
	if err != nil {
		return nil, err
	}

	names := newClubNames(e.store)
	rows := make([]TimelineRow, 0, len(events))
	for i, ev := range events {
		oldest := i == len(events)-1

		left, err := names.lookup(ctx, ev.FromClubID)
		if err != nil {
			return nil, err
		}
		joined, err := names.lookup(ctx, ev.ToClubID)
		if err != nil {
			return nil, err
		}

		// A nil side renders "Without Club" while the chain continues,
		// but the oldest row shows "-": there was no prior affiliation
		// to have left.
		if left == "" {
			if joined != "" && !oldest {
				left = "Without Club"
			} else {
				left = "-"
			}
		}
		if joined == "" {
			if left != "" && left != "-" && !oldest {
				joined = "Without Club"
			} else {
				joined = "-"
			}
		}

		rows = append(rows, TimelineRow{
			EventID:   ev.ID,
			Date:      ev.EventDate,
			Left:      left,
			Joined:    joined,
			Value:     FormatMoney(&ev.MarketValue),
			FeeOrLoan: formatFeeOrLoan(ev),
		})
	}
	return rows, nil
}

func formatFeeOrLoan(ev HistoryEvent) string {
	if ev.Type == EventLoan || ev.LoanEndAt != nil {
		if ev.LoanEndAt == nil {
			return "On loan"
		}
		return "On loan until " + ev.LoanEndAt.Display()
	}
	return FormatMoney(ev.Fee)
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is the current-state view of one player.
type Summary struct {
	Player Player

	// CurrentClub is where the player is physically playing: the loan
	// destination during a loan. Nil means free agent.
	CurrentClub *Club

	// ClubOfRecord is the owning club for chaining purposes: the loan
	// parent during a loan. Equal to CurrentClub outside of loans.
	ClubOfRecord *Club

	// CurrentValue is the most recent value point by date, which is not
	// necessarily tied to the latest history event.
	CurrentValue *ValuePoint
}

// PlayerSummary resolves the player's current state as of today.
func (e *Engine) PlayerSummary(ctx context.Context, playerID uuid.UUID) (*Summary, error) {
	player, err := e.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	recordID, displayID, err := ResolveCurrentClubs(ctx, e.store, playerID, e.nowDate())
	if err != nil {
		return nil, err
	}

	summary := &Summary{Player: *player}
	if displayID != nil {
		if summary.CurrentClub, err = e.store.FindClubByID(ctx, *displayID); err != nil {
			return nil, err
		}
	}
	if recordID != nil {
		if summary.ClubOfRecord, err = e.store.FindClubByID(ctx, *recordID); err != nil {
			return nil, err
		}
	}
	if summary.CurrentValue, err = e.store.LatestValuePoint(ctx, playerID); err != nil {
		return nil, err
	}
	return summary, nil
}

// PlayerHistory returns the raw history events newest-first.
func (e *Engine) PlayerHistory(ctx context.Context, playerID uuid.UUID) ([]HistoryEvent, error) {
	player, err := e.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return e.store.ListHistoryEvents(ctx, playerID, Desc)
}

// FindClub returns a club by id.
func (e *Engine) FindClub(ctx context.Context, clubID uuid.UUID) (*Club, error) {
	club, err := e.store.FindClubByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, ErrClubNotFound
	}
	return club, nil
}

// ValueSeries returns the player's value points oldest-first, the order
// the value chart consumes them in.
func (e *Engine) ValueSeries(ctx context.Context, playerID uuid.UUID) ([]ValuePoint, error) {
	player, err := e.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return e.store.ListValuePoints(ctx, playerID, Asc)
}

// =============================================================================
// ROSTER
// =============================================================================

// RosterPage is one page of the players table.
type RosterPage struct {
	Rows     []PlayerListRow
	Page     int
	PageSize int
	Total    int
}

const DefaultPageSize = 20

// ListPlayers returns one roster page. Each row carries only the
// latest affiliation and value, fetched top-1-per-group by the store.
func (e *Engine) ListPlayers(ctx context.Context, page, pageSize int) (*RosterPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	rows, total, err := e.store.ListPlayersWithLatest(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &RosterPage{Rows: rows, Page: page, PageSize: pageSize, Total: total}, nil
}

// SearchClubs proxies the club lookup used by autocomplete. A blank
// query returns nothing rather than the whole table.
func (e *Engine) SearchClubs(ctx context.Context, query string, limit int) ([]Club, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit < 1 {
		limit = 10
	}
	return e.store.SearchClubsByName(ctx, query, limit)
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatMoney renders a monetary value for display: "-" when absent,
// "Free transfer" for zero, otherwise thousand-grouped digits.
func FormatMoney(v *decimal.Decimal) string {
	if v == nil {
		return "-"
	}
	if v.IsZero() {
		return "Free transfer"
	}
	return groupThousands(v.StringFixed(0))
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// clubNames caches club-id to name lookups for one projection call.
type clubNames struct {
	store Store
	cache map[uuid.UUID]string
}

func newClubNames(store Store) *clubNames {
	return &clubNames{store: store, cache: make(map[uuid.UUID]string)}
}

// lookup returns the club name, "" for nil, and errors on a dangling
// reference since events only ever point at existing clubs.
func (n *clubNames) lookup(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	if name, ok := n.cache[*id]; ok {
		return name, nil
	}
	club, err := n.store.FindClubByID(ctx, *id)
	if err != nil {
		return "", err
	}
	if club == nil {
		return "", fmt.Errorf("club %s referenced by history but not found", id)
	}
	n.cache[*id] = club.Name
	return club.Name, nil
}
