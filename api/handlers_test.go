package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/transfer-engine/api"
	"github.com/pitchside/transfer-engine/store/memory"
	"github.com/pitchside/transfer-engine/transfer"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	engine := transfer.NewEngine(memory.New())
	handler := api.NewHandler(engine)
	router := api.NewRouter(handler, nil, []string{"*"})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createClub(t *testing.T, server *httptest.Server, name string) api.ClubDTO {
	t.Helper()
	var club api.ClubDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/clubs", api.CreateClubRequest{Name: name}, &club)
	require.Equal(t, http.StatusCreated, status)
	return club
}

func createPlayer(t *testing.T, server *httptest.Server, req api.CreatePlayerRequest) api.PlayerDTO {
	t.Helper()
	var player api.PlayerDTO
	status := doJSON(t, http.MethodPost, server.URL+"/api/players", req, &player)
	require.Equal(t, http.StatusCreated, status)
	return player
}

func strRef(s string) *string { return &s }

// =============================================================================
// PLAYERS
// =============================================================================

func TestAPI_CreatePlayer_WithInitialClub(t *testing.T) {
	server := newTestServer(t)
	club := createClub(t, server, "Ajax")

	player := createPlayer(t, server, api.CreatePlayerRequest{
		FirstName:    "Kenneth",
		LastName:     "Taylor",
		YearOfBirth:  2002,
		Position:     "MF",
		ClubID:       strRef(club.ID),
		CurrentValue: strRef("18000000"),
	})
	assert.NotEmpty(t, player.ID)

	var summary api.PlayerSummaryDTO
	status := doJSON(t, http.MethodGet, server.URL+"/api/players/"+player.ID, nil, &summary)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, summary.CurrentClub)
	assert.Equal(t, "Ajax", summary.CurrentClub.Name)
	require.NotNil(t, summary.CurrentValue)
	assert.Equal(t, "18000000", summary.CurrentValue.Value)
}

func TestAPI_CreatePlayer_ValidationErrors(t *testing.T) {
	server := newTestServer(t)

	var errResp api.ErrorResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/players", api.CreatePlayerRequest{
		FirstName: "", LastName: "", YearOfBirth: 1800, Position: "XX",
	}, &errResp)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, errResp.Fields, "field violations are itemized")
}

func TestAPI_GetPlayer_NotFound(t *testing.T) {
	server := newTestServer(t)

	status := doJSON(t, http.MethodGet,
		server.URL+"/api/players/00000000-0000-0000-0000-000000000001", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_RetirePlayer(t *testing.T) {
	server := newTestServer(t)
	player := createPlayer(t, server, api.CreatePlayerRequest{
		FirstName: "Old", LastName: "Timer", YearOfBirth: 1985, Position: "GK",
	})

	status := doJSON(t, http.MethodPost,
		server.URL+"/api/players/"+player.ID+"/retire", api.RetireRequest{Retired: true}, nil)
	require.Equal(t, http.StatusOK, status)

	var summary api.PlayerSummaryDTO
	status = doJSON(t, http.MethodGet, server.URL+"/api/players/"+player.ID, nil, &summary)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, summary.Player.IsRetired)
}

func TestAPI_ListPlayers_Paginated(t *testing.T) {
	server := newTestServer(t)

	for i := 0; i < 3; i++ {
		createPlayer(t, server, api.CreatePlayerRequest{
			FirstName:   "Player",
			LastName:    fmt.Sprintf("Last%d", i),
			YearOfBirth: 2000,
			Position:    "DF",
		})
	}

	var page api.RosterPageDTO
	status := doJSON(t, http.MethodGet, server.URL+"/api/players?page=1&page_size=2", nil, &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Rows, 2)
	assert.Equal(t, "-", page.Rows[0].ValueDisplay)
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestAPI_RecordTransfer_ChainAndConflict(t *testing.T) {
	server := newTestServer(t)
	ajax := createClub(t, server, "Ajax")
	chelsea := createClub(t, server, "Chelsea")
	player := createPlayer(t, server, api.CreatePlayerRequest{
		FirstName: "Jorrel", LastName: "Hato", YearOfBirth: 2006, Position: "DF",
	})

	transfersURL := server.URL + "/api/players/" + player.ID + "/transfers"

	var first api.HistoryEventDTO
	status := doJSON(t, http.MethodPost, transfersURL, api.RecordTransferRequest{
		Date: "2023-07-01", Type: "TRANSFER", ToClubID: strRef(ajax.ID), MarketValue: "5000000",
	}, &first)
	require.Equal(t, http.StatusCreated, status)
	assert.Nil(t, first.FromClubID)

	var second api.HistoryEventDTO
	status = doJSON(t, http.MethodPost, transfersURL, api.RecordTransferRequest{
		Date: "2024-08-01", Type: "TRANSFER", ToClubID: strRef(chelsea.ID), MarketValue: "40000000",
	}, &second)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, second.FromClubID)
	assert.Equal(t, ajax.ID, *second.FromClubID)

	// Transferring to the current club conflicts
	var errResp api.ErrorResponse
	status = doJSON(t, http.MethodPost, transfersURL, api.RecordTransferRequest{
		Date: "2025-01-01", Type: "TRANSFER", ToClubID: strRef(chelsea.ID), MarketValue: "40000000",
	}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "same_club_transfer", errResp.Kind)
}

func TestAPI_RecordLoan_Timeline(t *testing.T) {
	server := newTestServer(t)
	ajax := createClub(t, server, "Ajax")
	palace := createClub(t, server, "Crystal Palace")
	player := createPlayer(t, server, api.CreatePlayerRequest{
		FirstName: "On", LastName: "Loan", YearOfBirth: 2001, Position: "CF",
	})

	transfersURL := server.URL + "/api/players/" + player.ID + "/transfers"

	status := doJSON(t, http.MethodPost, transfersURL, api.RecordTransferRequest{
		Date: "2023-07-01", Type: "TRANSFER", ToClubID: strRef(ajax.ID), MarketValue: "5000000",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, http.MethodPost, transfersURL, api.RecordTransferRequest{
		Date: "2024-08-30", Type: "LOAN", ToClubID: strRef(palace.ID),
		MarketValue: "5000000", LoanEnd: strRef("2025-06-30"),
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var timeline []api.TimelineRowDTO
	status = doJSON(t, http.MethodGet, server.URL+"/api/players/"+player.ID+"/timeline", nil, &timeline)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, timeline, 2)
	assert.Equal(t, "On loan until 30/06/2025", timeline[0].FeeOrLoan)
	assert.Equal(t, "Crystal Palace", timeline[0].Joined)
}

func TestAPI_RecordTransfer_BadShape(t *testing.T) {
	server := newTestServer(t)
	ajax := createClub(t, server, "Ajax")
	player := createPlayer(t, server, api.CreatePlayerRequest{
		FirstName: "Bad", LastName: "Shape", YearOfBirth: 2000, Position: "MF",
	})

	var errResp api.ErrorResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/players/"+player.ID+"/transfers",
		api.RecordTransferRequest{
			Date: "2024-07-01", Type: "TRANSFER", ToClubID: strRef(ajax.ID),
			MarketValue: "1000000", Fee: strRef("500"), LoanEnd: strRef("2025-06-30"),
		}, &errResp)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "loan_fee_exclusive", errResp.Kind)
}

// =============================================================================
// VALUES
// =============================================================================

func TestAPI_RecordAndListValues(t *testing.T) {
	server := newTestServer(t)
	player := createPlayer(t, server, api.CreatePlayerRequest{
		FirstName: "Value", LastName: "Curve", YearOfBirth: 2000, Position: "MF",
	})
	valuesURL := server.URL + "/api/players/" + player.ID + "/values"

	for _, sample := range []api.RecordValueRequest{
		{Date: "2024-03-01", Value: "3000000"},
		{Date: "2024-01-01", Value: "1000000"},
	} {
		status := doJSON(t, http.MethodPost, valuesURL, sample, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var series []api.ValuePointDTO
	status := doJSON(t, http.MethodGet, valuesURL, nil, &series)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].Date, "series is oldest first")
}

// =============================================================================
// CLUBS
// =============================================================================

func TestAPI_Clubs_CreateSearchDuplicate(t *testing.T) {
	server := newTestServer(t)
	createClub(t, server, "Manchester United")
	createClub(t, server, "Manchester City")

	var clubs []api.ClubDTO
	status := doJSON(t, http.MethodGet, server.URL+"/api/clubs?q=manchester", nil, &clubs)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, clubs, 2)

	status = doJSON(t, http.MethodPost, server.URL+"/api/clubs",
		api.CreateClubRequest{Name: "MANCHESTER UNITED"}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

// =============================================================================
// IMPORT
// =============================================================================

func TestAPI_ImportPlayers_CSV(t *testing.T) {
	server := newTestServer(t)
	createClub(t, server, "Ajax")

	csv := strings.Join([]string{
		"firstName,lastName,yearOfBirth,position,currentValue,club",
		"Kenneth,Taylor,2002,MF,18000000,Ajax",
		"Unknown,Club,2000,DF,1000000,Atlantis FC",
	}, "\n")

	resp, err := http.Post(server.URL+"/api/players/import", "text/csv", strings.NewReader(csv))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report api.ImportReportDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.CreatedCount)
	assert.Equal(t, 1, report.ErrorCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].Row)
}

// =============================================================================
// HEALTH
// =============================================================================

func TestAPI_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
