/*
import.go - Bulk player registration from CSV

PURPOSE:
  Imports players from a CSV with the header
  firstName,lastName,yearOfBirth,position,currentValue,club (any column
  order). The club cell may be a club id or a club name.

ROW ISOLATION:
  One bad row does not abort the batch: failures accumulate into the
  report while valid rows still commit. Each row is an independent new
  player, so there is no cross-row ordering constraint.

ROW NUMBERS:
  Error rows are 1-indexed counting the header, so the first data row
  reports as row 2.

Club lookups are cached per batch - a 500-row import for the same three
clubs does three lookups.
*/
package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// requiredColumns is the CSV contract; extra columns are ignored.
var requiredColumns = []string{
	"firstName", "lastName", "yearOfBirth", "position", "currentValue", "club",
}

// ImportRow is one parsed CSV data row, still unvalidated.
type ImportRow struct {
	FirstName    string
	LastName     string
	YearOfBirth  string
	Position     string
	CurrentValue string
	Club         string
}

// ImportRowError reports one failed row. Row is 1-indexed including the
// header row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarizes one import batch.
type ImportReport struct {
	CreatedCount int              `json:"createdCount"`
	ErrorCount   int              `json:"errorCount"`
	Errors       []ImportRowError `json:"errors"`
}

// ParseImportCSV reads and validates the CSV structure: header present,
// required columns all named. Cell-level validation happens per row
// during import so structural problems fail fast but data problems
// don't abort the batch.
func ParseImportCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	cell := func(record []string, col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]ImportRow, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, ImportRow{
			FirstName:    cell(record, "firstName"),
			LastName:     cell(record, "lastName"),
			YearOfBirth:  cell(record, "yearOfBirth"),
			Position:     strings.ToUpper(cell(record, "position")),
			CurrentValue: cell(record, "currentValue"),
			Club:         cell(record, "club"),
		})
	}
	return rows, nil
}

// ImportPlayers registers one player per row, isolating failures.
func (e *Engine) ImportPlayers(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	report := &ImportReport{}
	clubs := newClubResolver(e.store)

	for i, row := range rows {
		rowNum := i + 2 // 1-indexed plus header row

		input, err := e.rowToInput(ctx, clubs, row)
		if err == nil {
			_, err = e.SavePlayer(ctx, *input)
		}
		if err != nil {
			report.ErrorCount++
			report.Errors = append(report.Errors, ImportRowError{
				Row:     rowNum,
				Message: err.Error(),
			})
			continue
		}
		report.CreatedCount++
	}
	return report, nil
}

func (e *Engine) rowToInput(ctx context.Context, clubs *clubResolver, row ImportRow) (*PlayerInput, error) {
	input := &PlayerInput{
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Position:  Position(row.Position),
	}

	if row.YearOfBirth != "" {
		year, err := strconv.Atoi(row.YearOfBirth)
		if err != nil {
			return nil, fmt.Errorf("yearOfBirth %q is not a number", row.YearOfBirth)
		}
		input.YearOfBirth = year
	}

	if row.CurrentValue != "" {
		value, err := decimal.NewFromString(row.CurrentValue)
		if err != nil {
			return nil, fmt.Errorf("currentValue %q is not a number", row.CurrentValue)
		}
		input.CurrentValue = &value
	}

	if row.Club != "" {
		club, err := clubs.resolve(ctx, row.Club)
		if err != nil {
			return nil, err
		}
		input.ClubID = &club.ID
	}
	return input, nil
}

// =============================================================================
// CLUB RESOLUTION - id or name, cached per batch
// =============================================================================

type clubResolver struct {
	store Store
	cache map[string]*Club
}

func newClubResolver(store Store) *clubResolver {
	return &clubResolver{store: store, cache: make(map[string]*Club)}
}

// resolve accepts a club id or a club name (case-insensitive) and
// returns the club, consulting the batch cache first.
func (r *clubResolver) resolve(ctx context.Context, ref string) (*Club, error) {
	key := strings.ToLower(strings.TrimSpace(ref))
	if club, ok := r.cache[key]; ok {
		if club == nil {
			return nil, fmt.Errorf("club %q: %w", ref, ErrClubNotFound)
		}
		return club, nil
	}

	var club *Club
	var err error
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		club, err = r.store.FindClubByID(ctx, id)
	} else {
		club, err = r.store.FindClubByName(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	r.cache[key] = club
	if club == nil {
		return nil, fmt.Errorf("club %q: %w", ref, ErrClubNotFound)
	}
	return club, nil
}
