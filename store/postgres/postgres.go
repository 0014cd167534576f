/*
Package postgres provides a PostgreSQL-backed implementation of the
storage interfaces using pgx.

Same semantics as store/sqlite: append-only history_events and
value_points, (event_date, seq) ordering with BIGSERIAL seq breaking
same-date ties, case-insensitive unique club names (CITEXT-free, via a
lower(name) unique index).

Schema lives in db/migrations and is applied with golang-migrate; see
Migrate.

Decimals travel as text: inserted with decimal.String() and selected
with ::text casts, so no pgtype.Numeric conversion is needed.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pitchside/transfer-engine/transfer"
)

// Store implements transfer.TxStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// querier covers *pgxpool.Pool and pgx.Tx so the same statement helpers
// run inside and outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// PLAYERS
// =============================================================================

func (s *Store) CreatePlayer(ctx context.Context, p transfer.Player) error {
	return createPlayer(ctx, s.pool, p)
}

func createPlayer(ctx context.Context, db querier, p transfer.Player) error {
	_, err := db.Exec(ctx, `
		INSERT INTO players (id, first_name, last_name, year_of_birth, position, is_retired, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.FirstName, p.LastName, p.YearOfBirth, string(p.Position), p.IsRetired, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *Store) FindPlayer(ctx context.Context, id uuid.UUID) (*transfer.Player, error) {
	return findPlayer(ctx, s.pool, id)
}

func findPlayer(ctx context.Context, db querier, id uuid.UUID) (*transfer.Player, error) {
	row := db.QueryRow(ctx, `
		SELECT id, first_name, last_name, year_of_birth, position, is_retired, created_at
		FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (*transfer.Player, error) {
	var (
		p        transfer.Player
		position string
	)
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.YearOfBirth, &position, &p.IsRetired, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	p.Position = transfer.Position(position)
	return &p, nil
}

func (s *Store) SetPlayerRetired(ctx context.Context, id uuid.UUID, retired bool) error {
	return setPlayerRetired(ctx, s.pool, id, retired)
}

func setPlayerRetired(ctx context.Context, db querier, id uuid.UUID, retired bool) error {
	tag, err := db.Exec(ctx, `UPDATE players SET is_retired = $1 WHERE id = $2`, retired, id)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transfer.ErrPlayerNotFound
	}
	return nil
}

// =============================================================================
// CLUBS
// =============================================================================

func (s *Store) CreateClub(ctx context.Context, c transfer.Club) error {
	return createClub(ctx, s.pool, c)
}

func createClub(ctx context.Context, db querier, c transfer.Club) error {
	_, err := db.Exec(ctx,
		`INSERT INTO clubs (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return transfer.ErrClubNameTaken
		}
		return fmt.Errorf("insert club: %w", err)
	}
	return nil
}

func (s *Store) FindClubByID(ctx context.Context, id uuid.UUID) (*transfer.Club, error) {
	return findClubByID(ctx, s.pool, id)
}

func findClubByID(ctx context.Context, db querier, id uuid.UUID) (*transfer.Club, error) {
	row := db.QueryRow(ctx, `SELECT id, name, created_at FROM clubs WHERE id = $1`, id)
	return scanClub(row)
}

func (s *Store) FindClubByName(ctx context.Context, name string) (*transfer.Club, error) {
	return findClubByName(ctx, s.pool, name)
}

func findClubByName(ctx context.Context, db querier, name string) (*transfer.Club, error) {
	row := db.QueryRow(ctx,
		`SELECT id, name, created_at FROM clubs WHERE lower(name) = lower($1)`, name)
	return scanClub(row)
}

func scanClub(row pgx.Row) (*transfer.Club, error) {
	var c transfer.Club
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan club: %w", err)
	}
	return &c, nil
}

func (s *Store) SearchClubsByName(ctx context.Context, query string, limit int) ([]transfer.Club, error) {
	return searchClubsByName(ctx, s.pool, query, limit)
}

func searchClubsByName(ctx context.Context, db querier, query string, limit int) ([]transfer.Club, error) {
	rows, err := db.Query(ctx, `
		SELECT id, name, created_at FROM clubs
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name ASC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search clubs: %w", err)
	}
	defer rows.Close()

	var clubs []transfer.Club
	for rows.Next() {
		var c transfer.Club
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

// =============================================================================
// HISTORY EVENTS
// =============================================================================

const historyColumns = `seq, id, player_id, type, event_date::text, from_club_id,
	to_club_id, loan_parent_id, loan_end_at::text, fee::text, market_value::text, created_at`

func (s *Store) InsertHistoryEvent(ctx context.Context, e transfer.HistoryEvent) error {
	return insertHistoryEvent(ctx, s.pool, e)
}

func insertHistoryEvent(ctx context.Context, db querier, e transfer.HistoryEvent) error {
	_, err := db.Exec(ctx, `
		INSERT INTO history_events
		(id, player_id, type, event_date, from_club_id, to_club_id,
		 loan_parent_id, loan_end_at, fee, market_value, created_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8::date, $9::numeric, $10::numeric, $11)`,
		e.ID, e.PlayerID, string(e.Type), e.EventDate.String(),
		e.FromClubID, e.ToClubID, e.LoanParentID,
		dateOrNil(e.LoanEndAt), decimalOrNil(e.Fee), e.MarketValue.String(), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	return nil
}

func (s *Store) LatestEventBefore(ctx context.Context, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	return latestEventBefore(ctx, s.pool, playerID, date)
}

func latestEventBefore(ctx context.Context, db querier, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	rows, err := db.Query(ctx, `
		SELECT `+historyColumns+`
		FROM history_events
		WHERE player_id = $1 AND event_date <= $2::date
		ORDER BY event_date DESC, seq DESC
		LIMIT 1`, playerID, date.String())
	if err != nil {
		return nil, fmt.Errorf("query latest event: %w", err)
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
	return listHistoryEvents(ctx, s.pool, playerID, order)
}

func listHistoryEvents(ctx context.Context, db querier, playerID uuid.UUID, order transfer.Order) ([]transfer.HistoryEvent, error) {
	dir := "ASC"
	if order == transfer.Desc {
		dir = "DESC"
	}
	rows, err := db.Query(ctx, `
		SELECT `+historyColumns+`
		FROM history_events
		WHERE player_id = $1
		ORDER BY event_date `+dir+`, seq `+dir, playerID)
	if err != nil {
		return nil, fmt.Errorf("query history events: %w", err)
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

func scanHistoryEvent(row pgx.Row) (transfer.HistoryEvent, error) {
	var (
		e         transfer.HistoryEvent
		typeStr   string
		eventDate string
		loanEnd   *string
		fee       *string
		value     string
	)
	err := row.Scan(&e.Seq, &e.ID, &e.PlayerID, &typeStr, &eventDate,
		&e.FromClubID, &e.ToClubID, &e.LoanParentID, &loanEnd, &fee, &value, &e.CreatedAt)
	if err != nil {
		return e, fmt.Errorf("scan history event: %w", err)
	}
	e.Type = transfer.EventType(typeStr)
	if e.EventDate, err = transfer.ParseDate(eventDate); err != nil {
		return e, fmt.Errorf("invalid event date %q: %w", eventDate, err)
	}
	if loanEnd != nil {
		d, err := transfer.ParseDate(*loanEnd)
		if err != nil {
			return e, fmt.Errorf("invalid loan end date %q: %w", *loanEnd, err)
		}
		e.LoanEndAt = &d
	}
	if fee != nil {
		d, err := decimal.NewFromString(*fee)
		if err != nil {
			return e, fmt.Errorf("invalid fee %q: %w", *fee, err)
		}
		e.Fee = &d
	}
	if e.MarketValue, err = decimal.NewFromString(value); err != nil {
		return e, fmt.Errorf("invalid market value %q: %w", value, err)
	}
	return e, nil
}

// =============================================================================
// VALUE POINTS
// =============================================================================

func (s *Store) InsertValuePoint(ctx context.Context, v transfer.ValuePoint) error {
	return insertValuePoint(ctx, s.pool, v)
}

func insertValuePoint(ctx context.Context, db querier, v transfer.ValuePoint) error {
	_, err := db.Exec(ctx, `
		INSERT INTO value_points (id, player_id, date, value, created_at)
		VALUES ($1, $2, $3::date, $4::numeric, $5)`,
		v.ID, v.PlayerID, v.Date.String(), v.Value.String(), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert value point: %w", err)
	}
	return nil
}

func (s *Store) ListValuePoints(ctx context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	return listValuePoints(ctx, s.pool, playerID, order)
}

func listValuePoints(ctx context.Context, db querier, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	dir := "ASC"
	if order == transfer.Desc {
		dir = "DESC"
	}
	rows, err := db.Query(ctx, `
		SELECT seq, id, player_id, date::text, value::text, created_at
		FROM value_points
		WHERE player_id = $1
		ORDER BY date `+dir+`, seq `+dir, playerID)
	if err != nil {
		return nil, fmt.Errorf("query value points: %w", err)
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
	return latestValuePoint(ctx, s.pool, playerID)
}

func latestValuePoint(ctx context.Context, db querier, playerID uuid.UUID) (*transfer.ValuePoint, error) {
	rows, err := db.Query(ctx, `
		SELECT seq, id, player_id, date::text, value::text, created_at
		FROM value_points
		WHERE player_id = $1
		ORDER BY date DESC, seq DESC
		LIMIT 1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("query latest value: %w", err)
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

func scanValuePoint(row pgx.Row) (transfer.ValuePoint, error) {
	var (
		v       transfer.ValuePoint
		dateStr string
		valStr  string
	)
	err := row.Scan(&v.Seq, &v.ID, &v.PlayerID, &dateStr, &valStr, &v.CreatedAt)
	if err != nil {
		return v, fmt.Errorf("scan value point: %w", err)
	}
	if v.Date, err = transfer.ParseDate(dateStr); err != nil {
		return v, fmt.Errorf("invalid value date %q: %w", dateStr, err)
	}
	if v.Value, err = decimal.NewFromString(valStr); err != nil {
		return v, fmt.Errorf("invalid value %q: %w", valStr, err)
	}
	return v, nil
}

// =============================================================================
// ROSTER PROJECTION
// =============================================================================

func (s *Store) ListPlayersWithLatest(ctx context.Context, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	return listPlayersWithLatest(ctx, s.pool, page, pageSize)
}

func listPlayersWithLatest(ctx context.Context, db querier, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count players: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.Query(ctx, `
		SELECT p.id, p.first_name, p.last_name, p.year_of_birth, p.position, p.is_retired, p.created_at,
		       c.name,
		       v.id, v.date::text, v.value::text
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
		LIMIT $1 OFFSET $2`, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var result []transfer.PlayerListRow
	for rows.Next() {
		var (
			row      transfer.PlayerListRow
			position string
			vID      *uuid.UUID
			vDate    *string
			vValue   *string
		)
		err := rows.Scan(&row.Player.ID, &row.Player.FirstName, &row.Player.LastName,
			&row.Player.YearOfBirth, &position, &row.Player.IsRetired, &row.Player.CreatedAt,
			&row.ClubName, &vID, &vDate, &vValue)
		if err != nil {
			return nil, 0, fmt.Errorf("scan roster row: %w", err)
		}
		row.Player.Position = transfer.Position(position)
		if vID != nil && vDate != nil && vValue != nil {
			point := transfer.ValuePoint{ID: *vID, PlayerID: row.Player.ID}
			if point.Date, err = transfer.ParseDate(*vDate); err != nil {
				return nil, 0, fmt.Errorf("invalid value date %q: %w", *vDate, err)
			}
			if point.Value, err = decimal.NewFromString(*vValue); err != nil {
				return nil, 0, fmt.Errorf("invalid value %q: %w", *vValue, err)
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

// WithTx executes fn within a database transaction and rolls back on
// error. The store passed to fn routes every statement through the
// transaction, so chain resolution sees uncommitted writes from the
// same append.
func (s *Store) WithTx(ctx context.Context, fn func(transfer.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
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

func dateOrNil(d *transfer.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
