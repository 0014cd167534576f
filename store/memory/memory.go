// Package memory provides an in-memory TxStore implementation for
// tests and local development. Semantics mirror the SQL stores: events
// and value points are kept ordered by date with insertion sequence as
// the tie-break, and WithTx rolls back on error via snapshot/restore.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pitchside/transfer-engine/transfer"
)

type Store struct {
	mu      sync.RWMutex
	players map[uuid.UUID]transfer.Player
	clubs   map[uuid.UUID]transfer.Club
	events  map[uuid.UUID][]transfer.HistoryEvent
	values  map[uuid.UUID][]transfer.ValuePoint
	seq     int64
}

func New() *Store {
	return &Store{
		players: make(map[uuid.UUID]transfer.Player),
		clubs:   make(map[uuid.UUID]transfer.Club),
		events:  make(map[uuid.UUID][]transfer.HistoryEvent),
		values:  make(map[uuid.UUID][]transfer.ValuePoint),
	}
}

// =============================================================================
// PLAYERS
// =============================================================================

func (s *Store) CreatePlayer(_ context.Context, p transfer.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
	return nil
}

func (s *Store) FindPlayer(_ context.Context, id uuid.UUID) (*transfer.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPlayerLocked(id), nil
}

func (s *Store) findPlayerLocked(id uuid.UUID) *transfer.Player {
	if p, ok := s.players[id]; ok {
		return &p
	}
	return nil
}

func (s *Store) SetPlayerRetired(_ context.Context, id uuid.UUID, retired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return transfer.ErrPlayerNotFound
	}
	p.IsRetired = retired
	s.players[id] = p
	return nil
}

// =============================================================================
// CLUBS
// =============================================================================

func (s *Store) CreateClub(_ context.Context, c transfer.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clubs {
		if strings.EqualFold(existing.Name, c.Name) {
			return transfer.ErrClubNameTaken
		}
	}
	s.clubs[c.ID] = c
	return nil
}

func (s *Store) FindClubByID(_ context.Context, id uuid.UUID) (*transfer.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clubs[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *Store) FindClubByName(_ context.Context, name string) (*transfer.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clubs {
		if strings.EqualFold(c.Name, name) {
			club := c
			return &club, nil
		}
	}
	return nil, nil
}

func (s *Store) SearchClubsByName(_ context.Context, query string, limit int) ([]transfer.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var matches []transfer.Club
	for _, c := range s.clubs {
		if strings.Contains(strings.ToLower(c.Name), q) {
			matches = append(matches, c)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// =============================================================================
// HISTORY EVENTS
// =============================================================================

func (s *Store) InsertHistoryEvent(_ context.Context, e transfer.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEventLocked(e)
}

func (s *Store) insertEventLocked(e transfer.HistoryEvent) error {
	s.seq++
	e.Seq = s.seq

	events := s.events[e.PlayerID]
	// Insert keeping (date asc, seq asc) order. Equal dates go after
	// existing entries so the newest insertion wins resolution.
	i := sort.Search(len(events), func(i int) bool {
		return events[i].EventDate.After(e.EventDate)
	})
	events = append(events, transfer.HistoryEvent{})
	copy(events[i+1:], events[i:])
	events[i] = e
	s.events[e.PlayerID] = events
	return nil
}

func (s *Store) LatestEventBefore(_ context.Context, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestEventBeforeLocked(playerID, date), nil
}

func (s *Store) latestEventBeforeLocked(playerID uuid.UUID, date transfer.Date) *transfer.HistoryEvent {
	events := s.events[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].EventDate.BeforeOrEqual(date) {
			e := events[i]
			return &e
		}
	}
	return nil
}

func (s *Store) ListHistoryEvents(_ context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[playerID]
	out := make([]transfer.HistoryEvent, len(events))
	copy(out, events)
	if order == transfer.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// =============================================================================
// VALUE POINTS
// =============================================================================

func (s *Store) InsertValuePoint(_ context.Context, v transfer.ValuePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertValueLocked(v)
}

func (s *Store) insertValueLocked(v transfer.ValuePoint) error {
	s.seq++
	v.Seq = s.seq

	values := s.values[v.PlayerID]
	i := sort.Search(len(values), func(i int) bool {
		return values[i].Date.After(v.Date)
	})
	values = append(values, transfer.ValuePoint{})
	copy(values[i+1:], values[i:])
	values[i] = v
	s.values[v.PlayerID] = values
	return nil
}

func (s *Store) ListValuePoints(_ context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := s.values[playerID]
	out := make([]transfer.ValuePoint, len(values))
	copy(out, values)
	if order == transfer.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *Store) LatestValuePoint(_ context.Context, playerID uuid.UUID) (*transfer.ValuePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := s.values[playerID]
	if len(values) == 0 {
		return nil, nil
	}
	v := values[len(values)-1]
	return &v, nil
}

// =============================================================================
// ROSTER PROJECTION
// =============================================================================

func (s *Store) ListPlayersWithLatest(_ context.Context, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPlayersLocked(page, pageSize)
}

func (s *Store) listPlayersLocked(page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	players := make([]transfer.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].LastName != players[j].LastName {
			return players[i].LastName < players[j].LastName
		}
		if players[i].FirstName != players[j].FirstName {
			return players[i].FirstName < players[j].FirstName
		}
		return players[i].ID.String() < players[j].ID.String()
	})

	total := len(players)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	rows := make([]transfer.PlayerListRow, 0, end-start)
	for _, p := range players[start:end] {
		row := transfer.PlayerListRow{Player: p}

		if events := s.events[p.ID]; len(events) > 0 {
			latest := events[len(events)-1]
			if latest.ToClubID != nil {
				if club, ok := s.clubs[*latest.ToClubID]; ok {
					name := club.Name
					row.ClubName = &name
				}
			}
		}
		if values := s.values[p.ID]; len(values) > 0 {
			v := values[len(values)-1]
			row.CurrentValue = &v
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// =============================================================================
// TRANSACTIONS - snapshot/restore rollback
// =============================================================================

// WithTx executes fn atomically. The memory store simulates rollback by
// snapshotting state and restoring it when fn fails.
func (s *Store) WithTx(_ context.Context, fn func(transfer.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	view := &txView{parent: s}
	if err := fn(view); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	players map[uuid.UUID]transfer.Player
	clubs   map[uuid.UUID]transfer.Club
	events  map[uuid.UUID][]transfer.HistoryEvent
	values  map[uuid.UUID][]transfer.ValuePoint
	seq     int64
}

func (s *Store) snapshot() snapshot {
	players := make(map[uuid.UUID]transfer.Player, len(s.players))
	for k, v := range s.players {
		players[k] = v
	}
	clubs := make(map[uuid.UUID]transfer.Club, len(s.clubs))
	for k, v := range s.clubs {
		clubs[k] = v
	}
	events := make(map[uuid.UUID][]transfer.HistoryEvent, len(s.events))
	for k, v := range s.events {
		events[k] = append([]transfer.HistoryEvent{}, v...)
	}
	values := make(map[uuid.UUID][]transfer.ValuePoint, len(s.values))
	for k, v := range s.values {
		values[k] = append([]transfer.ValuePoint{}, v...)
	}
	return snapshot{players: players, clubs: clubs, events: events, values: values, seq: s.seq}
}

func (s *Store) restore(snap snapshot) {
	s.players = snap.players
	s.clubs = snap.clubs
	s.events = snap.events
	s.values = snap.values
	s.seq = snap.seq
}

// txView exposes the parent's unlocked internals to the function run
// inside WithTx (the parent already holds the write lock).
type txView struct {
	parent *Store
}

func (v *txView) CreatePlayer(_ context.Context, p transfer.Player) error {
	v.parent.players[p.ID] = p
	return nil
}

func (v *txView) FindPlayer(_ context.Context, id uuid.UUID) (*transfer.Player, error) {
	return v.parent.findPlayerLocked(id), nil
}

func (v *txView) SetPlayerRetired(_ context.Context, id uuid.UUID, retired bool) error {
	p, ok := v.parent.players[id]
	if !ok {
		return transfer.ErrPlayerNotFound
	}
	p.IsRetired = retired
	v.parent.players[id] = p
	return nil
}

func (v *txView) CreateClub(_ context.Context, c transfer.Club) error {
	v.parent.clubs[c.ID] = c
	return nil
}

func (v *txView) FindClubByID(_ context.Context, id uuid.UUID) (*transfer.Club, error) {
	if c, ok := v.parent.clubs[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (v *txView) FindClubByName(_ context.Context, name string) (*transfer.Club, error) {
	for _, c := range v.parent.clubs {
		if strings.EqualFold(c.Name, name) {
			club := c
			return &club, nil
		}
	}
	return nil, nil
}

func (v *txView) SearchClubsByName(ctx context.Context, query string, limit int) ([]transfer.Club, error) {
	q := strings.ToLower(query)
	var matches []transfer.Club
	for _, c := range v.parent.clubs {
		if strings.Contains(strings.ToLower(c.Name), q) {
			matches = append(matches, c)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (v *txView) InsertHistoryEvent(_ context.Context, e transfer.HistoryEvent) error {
	return v.parent.insertEventLocked(e)
}

func (v *txView) LatestEventBefore(_ context.Context, playerID uuid.UUID, date transfer.Date) (*transfer.HistoryEvent, error) {
	return v.parent.latestEventBeforeLocked(playerID, date), nil
}

func (v *txView) ListHistoryEvents(_ context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.HistoryEvent, error) {
	events := v.parent.events[playerID]
	out := make([]transfer.HistoryEvent, len(events))
	copy(out, events)
	if order == transfer.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (v *txView) InsertValuePoint(_ context.Context, p transfer.ValuePoint) error {
	return v.parent.insertValueLocked(p)
}

func (v *txView) ListValuePoints(_ context.Context, playerID uuid.UUID, order transfer.Order) ([]transfer.ValuePoint, error) {
	values := v.parent.values[playerID]
	out := make([]transfer.ValuePoint, len(values))
	copy(out, values)
	if order == transfer.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (v *txView) LatestValuePoint(_ context.Context, playerID uuid.UUID) (*transfer.ValuePoint, error) {
	values := v.parent.values[playerID]
	if len(values) == 0 {
		return nil, nil
	}
	p := values[len(values)-1]
	return &p, nil
}

func (v *txView) ListPlayersWithLatest(_ context.Context, page, pageSize int) ([]transfer.PlayerListRow, int, error) {
	return v.parent.listPlayersLocked(page, pageSize)
}
