/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements transfer.TxStore using SQLite. The same schema shape and
  queries apply to PostgreSQL (see store/postgres) - only dialect
  differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on history_events or value_points
  - No DELETE statements on either table
  - Corrections happen by inserting new dated rows

KEY TABLES:
  players:        Registered footballers (retirement is a flag update,
                  the one permitted mutation)
  clubs:          Immutable club records, unique name (case-insensitive)
  history_events: The affiliation chain; seq is the insertion sequence
                  that breaks same-date ties
  value_points:   The market-value series

HOT-PATH INDEXES:
  idx_history_player_date: the single most-recent-preceding-row lookup
  that chain resolution runs on every append
  idx_values_player_date:  latest-value lookup for summaries and roster

CONCURRENCY:
  sync.RWMutex for in-process safety plus WAL mode so readers don't
  block the single writer.

USAGE:
  store, err := sqlite.New("./data/transfers.db")
  ...
  engine := transfer.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). The postgres store uses versioned
  golang-migrate files instead.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pitchside/transfer-engine/transfer"
)

// Store implements transfer.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		year_of_birth INTEGER NOT NULL,
		position TEXT NOT NULL,
		is_retired INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_players_name
		ON players(last_name, first_name);

	CREATE TABLE IF NOT EXISTS clubs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL COLLATE NOCASE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_clubs_name
		ON clubs(name COLLATE NOCASE);

	-- Affiliation chain (append-only). seq is the insertion sequence:
	-- at identical event dates the highest seq wins resolution.
	CREATE TABLE IF NOT EXISTS history_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		player_id TEXT NOT NULL REFERENCES players(id),
		type TEXT NOT NULL CHECK (type IN ('TRANSFER', 'LOAN')),
		event_date TEXT NOT NULL,
		from_club_id TEXT REFERENCES clubs(id),
		to_club_id TEXT REFERENCES clubs(id),
		loan_parent_id TEXT REFERENCES clubs(id),
		loan_end_at TEXT,
		fee TEXT,
		market_value TEXT NOT NULL,
		created_at TEXT NOT NULL,
		-- fee and loan_end_at are mutually exclusive
		CHECK (fee IS NULL OR loan_end_at IS NULL)
	);

	-- Chain resolution hot path: most recent event at or before a date.
	CREATE INDEX IF NOT EXISTS idx_history_player_date
		ON history_events(player_id, event_date DESC, seq DESC);

	-- Market-value series (append-only).
	CREATE TABLE IF NOT EXISTS value_points (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		player_id TEXT NOT NULL REFERENCES players(id),
		date TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_values_player_date
		ON value_points(player_id, date DESC, seq DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer covers *sql.DB and *sql.Tx so the same statement helpers run
// inside and outside transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PLAYERS
// =============================================================================

func (s *Store) CreatePlayer(ctx context.Context, p transfer.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPlayer(ctx, s.db, p)
}

func createPlayer(ctx context.Context, db execer, p transfer.Player) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO players (id, first_name, last_name, year_of_birth, position, is_retired, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.FirstName, p.LastName, p.YearOfBirth, string(p.Position),
		boolToInt(p.IsRetired), p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func (s *Store) FindPlayer(ctx context.Context, id uuid.UUID) (*transfer.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findPlayer(ctx, s.db, id)
}

func findPlayer(ctx context.Context, db execer, id uuid.UUID) (*transfer.Player, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, year_of_birth, position, is_retired, created_at
		FROM players WHERE id = ?`, id.String())
	return scanPlayer(row)
}

func scanPlayer(row *sql.Row) (*transfer.Player, error) {
	var (
		p         transfer.Player
		idStr     string
		position  string
		retired   int
		createdAt string
	)
	err := row.Scan(&idStr, &p.FirstName, &p.LastName, &p.YearOfBirth, &position, &retired, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid player id %q: %w", idStr, err)
	}
	p.Position = transfer.Position(position)
	p.IsRetired = retired != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *Store) SetPlayerRetired(ctx context.Context, id uuid.UUID, retired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setPlayerRetired(ctx, s.db, id, retired)
}

func setPlayerRetired(ctx context.Context, db execer, id uuid.UUID, retired bool) error {
	res, err := db.ExecContext(ctx,
		`UPDATE players SET is_retired = ? WHERE id = ?`,
		boolToInt(retired), id.String())
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return transfer.ErrPlayerNotFound
	}
	return nil
}

// =============================================================================
// CLUBS
// =============================================================================

func (s *Store) CreateClub(ctx context.Context, c transfer.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createClub(ctx, s.db, c)
}

func createClub(ctx context.Context, db execer, c transfer.Club) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO clubs (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID.String(), c.Name, c.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return transfer.ErrClubNameTaken
		}
		return fmt.Errorf("failed to insert club: %w", err)
	}
	return nil
}

func (s *Store) FindClubByID(ctx context.Context, id uuid.UUID) (*transfer.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findClubByID(ctx, s.db, id)
}

func findClubByID(ctx context.Context, db execer, id uuid.UUID) (*transfer.Club, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM clubs WHERE id = ?`, id.String())
	return scanClub(row)
}

func (s *Store) FindClubByName(ctx context.Context, name string) (*transfer.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findClubByName(ctx, s.db, name)
}

func findClubByName(ctx context.Context, db execer, name string) (*transfer.Club, error) {
	// name column is COLLATE NOCASE, so = matches case-insensitively.
	row := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM clubs WHERE name = ?`, name)
	return scanClub(row)
}

func scanClub(row *sql.Row) (*transfer.Club, error) {
	var (
		c         transfer.Club
		idStr     string
		createdAt string
	)
	err := row.Scan(&idStr, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan club: %w", err)
	}
	c.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid club id %q: %w", idStr, err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func (s *Store) SearchClubsByName(ctx context.Context, query string, limit int) ([]transfer.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchClubsByName(ctx, s.db, query, limit)
}

func searchClubsByName(ctx context.Context, db execer, query string, limit int) ([]transfer.Club, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, created_at FROM clubs
		WHERE name LIKE '%' || ? || '%'
		ORDER BY name ASC
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search clubs: %w", err)
	}
	defer rows.Close()

	var clubs []transfer.Club
	for rows.Next() {
		var (
			c         transfer.Club
			idStr     string
			createdAt string
		)
		if err := rows.Scan(&idStr, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan club: %w", err)
		}
		if c.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("invalid club id %q: %w", idStr, err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

// =============================================================================
// HISTORY EVENTS
// =============================================================================

const historyColumns = `seq, id, player_id, type, event_date, from_club_id,
	to_club_id, loan_parent_id, loan_end_at, fee, market_value, created_at`

func (s *Store) InsertHistoryEvent(ctx context.Context, e transfer.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertHistoryEvent(ctx, s.db, e)
}

func insertHistoryEvent(ctx context.Context, db execer, e transfer.HistoryEvent) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO history_events
		(id, player_id, type, event_date, from_club_id, to_club_id,
		 loan_parent_id, loan_end_at, fee, market_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		e.PlayerID.String(),
		string(e.Type),
		e.EventDate.String(),
		uuidOrNull(e.FromClubID),
		uuidOrNull(e.ToClubID),
		uuidOrNull(e.LoanParentID),
		dateOrNull(e.LoanEndAt),
		decimalOrNull(e.Fee),
		e.MarketValue.String(),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history event: %w", err)
	}
	return nil
}

func (s *Store) LatestEventBefore(ctx context.Context, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestEventBefore(ctx, s.db, playerID, date)
}

func latestEventBefore(ctx context.Context, db execer, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM history_events
		WHERE player_id = ? AND event_date <= ?
		ORDER BY event_date DESC, seq DESC
		LIMIT 1`, playerID.String(), date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query latest event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanHistoryEvent(rows)
	if err != nil {
		return nil, err
	}
	return &e, rows.Err()
}

func (s *Store) ListHistoryEvents(ctx context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHistoryEvents(ctx, s.db, playerID, order)
}

func listHistoryEvents(ctx context.Context, db execer, playerID uuid.UUID, order transfer.Order) ([]transfer.HistoryEvent, error) {
	dir := "ASC"
	if order == transfer.Desc {
		dir = "DESC"
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM history_events
		WHERE player_id = ?
		ORDER BY event_date `+dir+`, seq `+dir,
		playerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query history events: %w", err)
	}
	defer rows.Close()

	var events []transfer.HistoryEvent
	for rows.Next() {
		e, err := scanHistoryEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanHistoryEvent(rows *sql.Rows) (transfer.HistoryEvent, error) {
	var (
		e           transfer.HistoryEvent
		idStr       string
		playerIDStr string
		typeStr     string
		eventDate   string
		fromClub    sql.NullString
		toClub      sql.NullString
		loanParent  sql.NullString
		loanEnd     sql.NullString
		fee         sql.NullString
		marketValue string
		createdAt   string
	)
	err := rows.Scan(&e.Seq, &idStr, &playerIDStr, &typeStr, &eventDate,
		&fromClub, &toClub, &loanParent, &loanEnd, &fee, &marketValue, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan history event: %w", err)
	}

	if e.ID, err = uuid.Parse(idStr); err != nil {
		return e, fmt.Errorf("invalid event id %q: %w", idStr, err)
	}
	if e.PlayerID, err = uuid.Parse(playerIDStr); err != nil {
		return e, fmt.Errorf("invalid player id %q: %w", playerIDStr, err)
	}
	e.Type = transfer.EventType(typeStr)
	if e.EventDate, err = transfer.ParseDate(eventDate); err != nil {
		return e, fmt.Errorf("invalid event date %q: %w", eventDate, err)
	}
	if e.FromClubID, err = nullUUID(fromClub); err != nil {
		return e, err
	}
	if e.ToClubID, err = nullUUID(toClub); err != nil {
		return e, err
	}
	if e.LoanParentID, err = nullUUID(loanParent); err != nil {
		return e, err
	}
	if loanEnd.Valid {
		d, err := transfer.ParseDate(loanEnd.String)
		if err != nil {
			return e, fmt.Errorf("invalid loan end date %q: %w", loanEnd.String, err)
		}
		e.LoanEndAt = &d
	}
	if fee.Valid {
		d, err := decimal.NewFromString(fee.String)
		if err != nil {
			return e, fmt.Errorf("invalid fee %q: %w", fee.String, err)
		}
		e.Fee = &d
	}
	if e.MarketValue, err = decimal.NewFromString(marketValue); err != nil {
		return e, fmt.Errorf("invalid market value %q: %w", marketValue, err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

// =============================================================================
// VALUE POINTS
// =============================================================================

func (s *Store) InsertValuePoint(ctx context.Context, v transfer.ValuePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertValuePoint(ctx, s.db, v)
}

func insertValuePoint(ctx context.Context, db execer, v transfer.ValuePoint) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO value_points (id, player_id, date, value, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.ID.String(), v.PlayerID.String(), v.Date.String(),
		v.Value.String(), v.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert value point: %w", err)
	}
	return nil
}

func (s *Store) ListValuePoints(ctx context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listValuePoints(ctx, s.db, playerID, order)
}

func listValuePoints(ctx context.Context, db execer, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	dir := "ASC"
	if order == transfer.Desc {
		dir = "DESC"
	}
	rows, err := db.QueryContext(ctx, `
		SELECT seq, id, player_id, date, value, created_at
		FROM value_points
		WHERE player_id = ?
		ORDER BY date `+dir+`, seq `+dir,
		playerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query value points: %w", err)
	}
	defer rows.Close()

	var points []transfer.ValuePoint
	for rows.Next() {
		v, err := scanValuePoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, v)
	}
	return points, rows.Err()
}

func (s *Store) LatestValuePoint(ctx context.Context, playerID uuid.UUID) (*transfer.ValuePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestValuePoint(ctx, s.db, playerID)
}

func latestValuePoint(ctx context.Context, db execer, playerID uuid.UUID) (*transfer.ValuePoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, id, player_id, date, value, created_at
		FROM value_points
		WHERE player_id = ?
		ORDER BY date DESC, seq DESC
		LIMIT 1`, playerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query latest value: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := scanValuePoint(rows)
	if err != nil {
		return nil, err
	}
	return &v, rows.Err()
}

func scanValuePoint(rows *sql.Rows) (transfer.ValuePoint, error) {
	var (
		v           transfer.ValuePoint
		idStr       string
		playerIDStr string
		dateStr     string
		valueStr    string
		createdAt   string
	)
	err := rows.Scan(&v.Seq, &idStr, &playerIDStr, &dateStr, &valueStr, &createdAt)
	if err != nil {
		return v, fmt.Errorf("failed to scan value point: %w", err)
	}
	if v.ID, err = uuid.Parse(idStr); err != nil {
		return v, fmt.Errorf("invalid value point id %q: %w", idStr, err)
	}
	if v.PlayerID, err = uuid.Parse(playerIDStr); err != nil {
		return v, fmt.Errorf("invalid player id %q: %w", playerIDStr, err)
	}
	if v.Date, err = transfer.ParseDate(dateStr); err != nil {
		return v, fmt.Errorf("invalid value date %q: %w", dateStr, err)
	}
	if v.Value, err = decimal.NewFromString(valueStr); err != nil {
		return v, fmt.Errorf("invalid value %q: %w", valueStr, err)
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return v, nil
}

// =============================================================================
// ROSTER PROJECTION - top-1-per-group, no full histories
// =============================================================================

func (s *Store) ListPlayersWithLatest(ctx context.Context, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlayersWithLatest(ctx, s.db, page, pageSize)
}

func listPlayersWithLatest(ctx context.Context, db execer, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count players: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.first_name, p.last_name, p.year_of_birth, p.position, p.is_retired, p.created_at,
		       c.name,
		       v.id, v.date, v.value
		FROM players p
		LEFT JOIN clubs c ON c.id = (
			SELECT h.to_club_id FROM history_events h
			WHERE h.player_id = p.id
			ORDER BY h.event_date DESC, h.seq DESC
			LIMIT 1
		)
		LEFT JOIN value_points v ON v.seq = (
			SELECT v2.seq FROM value_points v2
			WHERE v2.player_id = p.id
			ORDER BY v2.date DESC, v2.seq DESC
			LIMIT 1
		)
		ORDER BY p.last_name ASC, p.first_name ASC, p.id ASC
		LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var result []transfer.PlayerListRow
	for rows.Next() {
		var (
			row       transfer.PlayerListRow
			idStr     string
			position  string
			retired   int
			createdAt string
			clubName  sql.NullString
			vID       sql.NullString
			vDate     sql.NullString
			vValue    sql.NullString
		)
		err := rows.Scan(&idStr, &row.Player.FirstName, &row.Player.LastName,
			&row.Player.YearOfBirth, &position, &retired, &createdAt,
			&clubName, &vID, &vDate, &vValue)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan roster row: %w", err)
		}
		if row.Player.ID, err = uuid.Parse(idStr); err != nil {
			return nil, 0, fmt.Errorf("invalid player id %q: %w", idStr, err)
		}
		row.Player.Position = transfer.Position(position)
		row.Player.IsRetired = retired != 0
		row.Player.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if clubName.Valid {
			name := clubName.String
			row.ClubName = &name
		}
		if vID.Valid && vDate.Valid && vValue.Valid {
			point := transfer.ValuePoint{PlayerID: row.Player.ID}
			if point.ID, err = uuid.Parse(vID.String); err != nil {
				return nil, 0, fmt.Errorf("invalid value point id %q: %w", vID.String, err)
			}
			if point.Date, err = transfer.ParseDate(vDate.String); err != nil {
				return nil, 0, fmt.Errorf("invalid value date %q: %w", vDate.String, err)
			}
			if point.Value, err = decimal.NewFromString(vValue.String); err != nil {
				return nil, 0, fmt.Errorf("invalid value %q: %w", vValue.String, err)
			}
			row.CurrentValue = &point
		}
		result = append(result, row)
	}
	return result, total, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. The store passed to
// fn routes statements through the transaction, so reads the append
// path performs (player/club lookups, chain resolution) see
// uncommitted writes from the same unit, and an error rolls everything
// back.
func (s *Store) WithTx(ctx context.Context, fn func(transfer.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreatePlayer(ctx context.Context, p transfer.Player) error {
	return createPlayer(ctx, ts.tx, p)
}

func (ts *txStore) FindPlayer(ctx context.Context, id uuid.UUID) (*transfer.Player, error) {
	return findPlayer(ctx, ts.tx, id)
}

func (ts *txStore) SetPlayerRetired(ctx context.Context, id uuid.UUID, retired bool) error {
	return setPlayerRetired(ctx, ts.tx, id, retired)
}

func (ts *txStore) CreateClub(ctx context.Context, c transfer.Club) error {
	return createClub(ctx, ts.tx, c)
}

func (ts *txStore) FindClubByID(ctx context.Context, id uuid.UUID) (*transfer.Club, error) {
	return findClubByID(ctx, ts.tx, id)
}

func (ts *txStore) FindClubByName(ctx context.Context, name string) (*transfer.Club, error) {
	return findClubByName(ctx, ts.tx, name)
}

func (ts *txStore) SearchClubsByName(ctx context.Context, query string, limit int) ([]transfer.Club, error) {
	return searchClubsByName(ctx, ts.tx, query, limit)
}

func (ts *txStore) InsertHistoryEvent(ctx context.Context, e transfer.HistoryEvent) error {
	return insertHistoryEvent(ctx, ts.tx, e)
}

func (ts *txStore) LatestEventBefore(ctx context.Context, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	return latestEventBefore(ctx, ts.tx, playerID, date)
}

func (ts *txStore) ListHistoryEvents(ctx context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.HistoryEvent, error) {
	return listHistoryEvents(ctx, ts.tx, playerID, order)
}

func (ts *txStore) InsertValuePoint(ctx context.Context, v transfer.ValuePoint) error {
	return insertValuePoint(ctx, ts.tx, v)
}

func (ts *txStore) ListValuePoints(ctx context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	return listValuePoints(ctx, ts.tx, playerID, order)
}

func (ts *txStore) LatestValuePoint(ctx context.Context, playerID uuid.UUID) (*transfer.ValuePoint, error) {
	return latestValuePoint(ctx, ts.tx, playerID)
}

func (ts *txStore) ListPlayersWithLatest(ctx context.Context, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	return listPlayersWithLatest(ctx, ts.tx, page, pageSize)
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func uuidOrNull(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func dateOrNull(d *transfer.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalOrNull(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid club id %q: %w", s.String, err)
	}
	return &id, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
