/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

CONVENTIONS:
  - Dates travel as YYYY-MM-DD strings
  - Money travels as decimal strings ("1500000.00"), never floats
  - Timestamps are RFC3339
  - Absent optional fields are omitted, not null-padded

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/pitchside/transfer-engine/transfer"
)

// =============================================================================
// PLAYERS
// =============================================================================

// PlayerDTO represents a player in API responses.
type PlayerDTO struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	YearOfBirth int    `json:"year_of_birth"`
	Position    string `json:"position"`
	IsRetired   bool   `json:"is_retired"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toPlayerDTO(p transfer.Player) PlayerDTO {
	return PlayerDTO{
		ID:          p.ID.String(),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		YearOfBirth: p.YearOfBirth,
		Position:    string(p.Position),
		IsRetired:   p.IsRetired,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// CreatePlayerRequest is the request to register a player. club_id and
// current_value optionally seed an initial affiliation and value point.
type CreatePlayerRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	YearOfBirth  int     `json:"year_of_birth"`
	Position     string  `json:"position"`
	ClubID       *string `json:"club_id,omitempty"`
	CurrentValue *string `json:"current_value,omitempty"`
	Date         *string `json:"date,omitempty"`
}

// RetireRequest toggles a player's retirement flag.
type RetireRequest struct {
	Retired bool `json:"retired"`
}

// PlayerSummaryDTO is the current-state view of one player.
type PlayerSummaryDTO struct {
	Player       PlayerDTO      `json:"player"`
	CurrentClub  *ClubDTO       `json:"current_club,omitempty"`
	ClubOfRecord *ClubDTO       `json:"club_of_record,omitempty"`
	CurrentValue *ValuePointDTO `json:"current_value,omitempty"`
}

// RosterRowDTO is one row of the paginated players table.
type RosterRowDTO struct {
	Player       PlayerDTO `json:"player"`
	ClubName     *string   `json:"club_name,omitempty"`
	CurrentValue *string   `json:"current_value,omitempty"`
	ValueDisplay string    `json:"value_display"`
}

// RosterPageDTO is one page of the players table.
type RosterPageDTO struct {
	Rows     []RosterRowDTO `json:"rows"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
}

// =============================================================================
// CLUBS
// =============================================================================

// ClubDTO represents a club in API responses.
type ClubDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toClubDTO(c transfer.Club) ClubDTO {
	return ClubDTO{
		ID:        c.ID.String(),
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toClubDTOPtr(c *transfer.Club) *ClubDTO {
	if c == nil {
		return nil
	}
	dto := toClubDTO(*c)
	return &dto
}

// CreateClubRequest is the request to create a club.
type CreateClubRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

// RecordTransferRequest is the request to append a history event. The
// source club is never accepted from the client - it is resolved from
// the chain.
type RecordTransferRequest struct {
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	ToClubID    *string `json:"to_club_id,omitempty"`
	MarketValue string  `json:"market_value"`
	Fee         *string `json:"fee,omitempty"`
	LoanEnd     *string `json:"loan_end,omitempty"`
}

// HistoryEventDTO represents a stored history event.
type HistoryEventDTO struct {
	ID           string  `json:"id"`
	PlayerID     string  `json:"player_id"`
	Type         string  `json:"type"`
	Date         string  `json:"date"`
	FromClubID   *string `json:"from_club_id,omitempty"`
	ToClubID     *string `json:"to_club_id,omitempty"`
	LoanParentID *string `json:"loan_parent_id,omitempty"`
	LoanEnd      *string `json:"loan_end,omitempty"`
	Fee          *string `json:"fee,omitempty"`
	MarketValue  string  `json:"market_value"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

func toHistoryEventDTO(e transfer.HistoryEvent) HistoryEventDTO {
	dto := HistoryEventDTO{
		ID:          e.ID.String(),
		PlayerID:    e.PlayerID.String(),
		Type:        string(e.Type),
		Date:        e.EventDate.String(),
		MarketValue: e.MarketValue.String(),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.FromClubID != nil {
		dto.FromClubID = strPtr(e.FromClubID.String())
	}
	if e.ToClubID != nil {
		dto.ToClubID = strPtr(e.ToClubID.String())
	}
	if e.LoanParentID != nil {
		dto.LoanParentID = strPtr(e.LoanParentID.String())
	}
	if e.LoanEndAt != nil {
		dto.LoanEnd = strPtr(e.LoanEndAt.String())
	}
	if e.Fee != nil {
		dto.Fee = strPtr(e.Fee.String())
	}
	return dto
}

// TimelineRowDTO is one display row of a player's transfer history,
// already formatted for rendering.
type TimelineRowDTO struct {
	EventID   string `json:"event_id"`
	Date      string `json:"date"`
	Left      string `json:"left"`
	Joined    string `json:"joined"`
	Value     string `json:"value"`
	FeeOrLoan string `json:"fee_or_loan"`
}

// =============================================================================
// VALUES
// =============================================================================

// RecordValueRequest is the request to append a standalone value point.
type RecordValueRequest struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// ValuePointDTO represents one market-value sample.
type ValuePointDTO struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Value string `json:"value"`
}

func toValuePointDTO(v transfer.ValuePoint) ValuePointDTO {
	return ValuePointDTO{
		ID:    v.ID.String(),
		Date:  v.Date.String(),
		Value: v.Value.String(),
	}
}

func toValuePointDTOPtr(v *transfer.ValuePoint) *ValuePointDTO {
	if v == nil {
		return nil
	}
	dto := toValuePointDTO(*v)
	return &dto
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportReportDTO is the outcome of a CSV import batch.
type ImportReportDTO struct {
	CreatedCount int                       `json:"created_count"`
	ErrorCount   int                       `json:"error_count"`
	Errors       []transfer.ImportRowError `json:"errors"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the shape of every error body.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Details string                `json:"details,omitempty"`
	Fields  []transfer.FieldError `json:"fields,omitempty"`
	Kind    string                `json:"kind,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func strPtr(s string) *string { return &s }
