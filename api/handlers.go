/*
handlers.go - HTTP API handlers for the transfer ledger

PURPOSE:
  Exposes the transfer engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Players:
    GET    /api/players                  Paginated roster
    POST   /api/players                  Register player
    GET    /api/players/{id}             Current-state summary
    POST   /api/players/{id}/retire      Toggle retirement flag
    POST   /api/players/import           CSV import batch

  Transfers:
    GET    /api/players/{id}/transfers   Raw history events
    POST   /api/players/{id}/transfers   Append transfer/loan
    GET    /api/players/{id}/timeline    Formatted history rows

  Values:
    GET    /api/players/{id}/values      Value series, oldest first
    POST   /api/players/{id}/values      Append value point

  Clubs:
    GET    /api/clubs                    Search by name fragment
    POST   /api/clubs                    Create club
    GET    /api/clubs/{id}               Get club

REQUEST FLOW:
  1. Parse HTTP request
  2. Decode and coerce the DTO into a domain input
  3. Call domain logic (engine)
  4. Serialize response
  5. Map domain errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed input
  - 404: Player or club not found
  - 409: Consistency violations, duplicate club name
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pitchside/transfer-engine/transfer"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. Metrics may be nil
// to skip business counters (tests).
type Handler struct {
	Engine  *transfer.Engine
	Metrics *Metrics
}

// NewHandler creates a new handler around the given engine.
func NewHandler(engine *transfer.Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) countEvent(eventType transfer.EventType) {
	if h.Metrics != nil {
		h.Metrics.RecordEvent(string(eventType))
	}
}

func (h *Handler) countRejection(err error) {
	if h.Metrics == nil {
		return
	}
	var verr *transfer.ValidationError
	var cerr *transfer.ConsistencyError
	switch {
	case errors.As(err, &verr):
		h.Metrics.RecordRejection("validation")
	case errors.As(err, &cerr):
		h.Metrics.RecordRejection(string(cerr.Kind))
	}
}

// =============================================================================
// PLAYER HANDLERS
// =============================================================================

// ListPlayers returns one roster page.
// GET /api/players?page=1&page_size=20
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	roster, err := h.Engine.ListPlayers(r.Context(), page, pageSize)
	if err != nil {
		writeDomainError(w, "Failed to list players", err)
		return
	}

	rows := make([]RosterRowDTO, len(roster.Rows))
	for i, row := range roster.Rows {
		dto := RosterRowDTO{
			Player:   toPlayerDTO(row.Player),
			ClubName: row.ClubName,
		}
		if row.CurrentValue != nil {
			dto.CurrentValue = strPtr(row.CurrentValue.Value.String())
			dto.ValueDisplay = transfer.FormatMoney(&row.CurrentValue.Value)
		} else {
			dto.ValueDisplay = transfer.FormatMoney(nil)
		}
		rows[i] = dto
	}

	writeJSON(w, http.StatusOK, RosterPageDTO{
		Rows:     rows,
		Page:     roster.Page,
		PageSize: roster.PageSize,
		Total:    roster.Total,
	})
}

// CreatePlayer registers a new player, optionally with an initial club
// and market value.
// POST /api/players
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := transfer.PlayerInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		YearOfBirth: req.YearOfBirth,
		Position:    transfer.Position(req.Position),
	}
	if req.ClubID != nil {
		id, err := uuid.Parse(*req.ClubID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid club_id", err)
			return
		}
		in.ClubID = &id
	}
	if req.CurrentValue != nil {
		v, err := decimal.NewFromString(*req.CurrentValue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid current_value", err)
			return
		}
		in.CurrentValue = &v
	}
	if req.Date != nil {
		d, err := transfer.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		in.Date = &d
	}

	player, err := h.Engine.SavePlayer(r.Context(), in)
	if err != nil {
		h.countRejection(err)
		writeDomainError(w, "Failed to create player", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlayerDTO(*player))
}

// GetPlayer returns a player's current-state summary.
// GET /api/players/{id}
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	summary, err := h.Engine.PlayerSummary(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, "Failed to get player", err)
		return
	}

	writeJSON(w, http.StatusOK, PlayerSummaryDTO{
		Player:       toPlayerDTO(summary.Player),
		CurrentClub:  toClubDTOPtr(summary.CurrentClub),
		ClubOfRecord: toClubDTOPtr(summary.ClubOfRecord),
		CurrentValue: toValuePointDTOPtr(summary.CurrentValue),
	})
}

// RetirePlayer toggles the retirement flag.
// POST /api/players/{id}/retire
func (h *Handler) RetirePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RetireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.SetRetired(r.Context(), playerID, req.Retired); err != nil {
		writeDomainError(w, "Failed to update player", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"retired": req.Retired})
}

// ImportPlayers ingests a CSV batch. Accepts either a raw text/csv body
// or a multipart form with a "file" part.
// POST /api/players/import
func (h *Handler) ImportPlayers(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	rows, err := transfer.ParseImportCSV(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid CSV", err)
		return
	}

	report, err := h.Engine.ImportPlayers(r.Context(), rows)
	if err != nil {
		writeDomainError(w, "Failed to import players", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordImported(report.CreatedCount)
	}

	writeJSON(w, http.StatusOK, ImportReportDTO{
		CreatedCount: report.CreatedCount,
		ErrorCount:   report.ErrorCount,
		Errors:       report.Errors,
	})
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// ListTransfers returns the raw history events, newest first.
// GET /api/players/{id}/transfers
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	events, err := h.Engine.PlayerHistory(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, "Failed to list transfers", err)
		return
	}

	dtos := make([]HistoryEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toHistoryEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordTransfer appends a transfer or loan event to a player's chain.
// POST /api/players/{id}/transfers
func (h *Handler) RecordTransfer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RecordTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := transferInputFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer", err)
		return
	}

	event, err := h.Engine.RecordTransfer(r.Context(), playerID, *in)
	if err != nil {
		h.countRejection(err)
		writeDomainError(w, "Failed to record transfer", err)
		return
	}
	h.countEvent(event.Type)
	writeJSON(w, http.StatusCreated, toHistoryEventDTO(*event))
}

func transferInputFromRequest(req RecordTransferRequest) (*transfer.TransferInput, error) {
	date, err := transfer.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	value, err := decimal.NewFromString(req.MarketValue)
	if err != nil {
		return nil, err
	}

	in := transfer.TransferInput{
		Date:        date,
		Type:        transfer.EventType(req.Type),
		MarketValue: value,
	}
	if req.ToClubID != nil {
		id, err := uuid.Parse(*req.ToClubID)
		if err != nil {
			return nil, err
		}
		in.ToClubID = &id
	}
	if req.Fee != nil {
		fee, err := decimal.NewFromString(*req.Fee)
		if err != nil {
			return nil, err
		}
		in.Fee = &fee
	}
	if req.LoanEnd != nil {
		end, err := transfer.ParseDate(*req.LoanEnd)
		if err != nil {
			return nil, err
		}
		in.LoanEnd = &end
	}
	return &in, nil
}

// GetTimeline returns the formatted history rows, newest first.
// GET /api/players/{id}/timeline
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	rows, err := h.Engine.PlayerTimeline(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, "Failed to build timeline", err)
		return
	}

	dtos := make([]TimelineRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = TimelineRowDTO{
			EventID:   row.EventID.String(),
			Date:      row.Date.Display(),
			Left:      row.Left,
			Joined:    row.Joined,
			Value:     row.Value,
			FeeOrLoan: row.FeeOrLoan,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// VALUE HANDLERS
// =============================================================================

// ListValues returns the value series oldest-first.
// GET /api/players/{id}/values
func (h *Handler) ListValues(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	points, err := h.Engine.ValueSeries(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, "Failed to list values", err)
		return
	}

	dtos := make([]ValuePointDTO, len(points))
	for i, p := range points {
		dtos[i] = toValuePointDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordValue appends a standalone value point.
// POST /api/players/{id}/values
func (h *Handler) RecordValue(w http.ResponseWriter, r *http.Request) {
	playerID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RecordValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := transfer.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}

	point, err := h.Engine.RecordValue(r.Context(), playerID, transfer.ValueInput{Date: date, Value: value})
	if err != nil {
		writeDomainError(w, "Failed to record value", err)
		return
	}
	writeJSON(w, http.StatusCreated, toValuePointDTO(*point))
}

// =============================================================================
// CLUB HANDLERS
// =============================================================================

// SearchClubs returns clubs matching a name fragment.
// GET /api/clubs?q=united&limit=10
func (h *Handler) SearchClubs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	clubs, err := h.Engine.SearchClubs(r.Context(), query, limit)
	if err != nil {
		writeDomainError(w, "Failed to search clubs", err)
		return
	}

	dtos := make([]ClubDTO, len(clubs))
	for i, c := range clubs {
		dtos[i] = toClubDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClub creates a new club.
// POST /api/clubs
func (h *Handler) CreateClub(w http.ResponseWriter, r *http.Request) {
	var req CreateClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	club, err := h.Engine.CreateClub(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, "Failed to create club", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClubDTO(*club))
}

// GetClub returns a single club.
// GET /api/clubs/{id}
func (h *Handler) GetClub(w http.ResponseWriter, r *http.Request) {
	clubID, ok := parseID(w, r)
	if !ok {
		return
	}

	club, err := h.Engine.FindClub(r.Context(), clubID)
	if err != nil {
		writeDomainError(w, "Failed to get club", err)
		return
	}
	writeJSON(w, http.StatusOK, toClubDTO(*club))
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}

// writeDomainError maps domain errors to HTTP statuses: validation to
// 400, missing entities to 404, chain/uniqueness conflicts to 409 and
// everything else to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *transfer.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  message,
			Fields: verr.Fields,
		})
		return
	}

	var cerr *transfer.ConsistencyError
	if errors.As(err, &cerr) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   message,
			Details: cerr.Message,
			Kind:    string(cerr.Kind),
		})
		return
	}

	switch {
	case transfer.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, transfer.ErrClubNameTaken):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
