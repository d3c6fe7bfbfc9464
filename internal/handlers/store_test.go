package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jason-s-yu/tysiac/internal/database"
	"github.com/jason-s-yu/tysiac/internal/models"
)

// memStore is an in-memory database.Store for handler tests.
type memStore struct {
	mu     sync.Mutex
	games  map[int32]*models.Game
	nextID int32

	// failWrites makes every mutation fail with this error
	failWrites error
}

var _ database.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{games: make(map[int32]*models.Game)}
}

func (m *memStore) CreateGame(_ context.Context, names [3]string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return 0, m.failWrites
	}
	m.nextID++
	m.games[m.nextID] = &models.Game{ID: m.nextID, PlayerNames: names, CreatedAt: time.Now()}
	return m.nextID, nil
}

func (m *memStore) GetGame(_ context.Context, id int32) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", id, database.ErrNotFound)
	}
	out := *g
	out.Rounds = append([]models.Round(nil), g.Rounds...)
	for other := range m.games {
		if other < id && (out.Prev == nil || other > *out.Prev) {
			out.Prev = models.Int32(other)
		}
		if other > id && (out.Next == nil || other < *out.Next) {
			out.Next = models.Int32(other)
		}
	}
	return &out, nil
}

func (m *memStore) ListGames(_ context.Context, limit int) ([]models.GameSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GameSummary
	for _, g := range m.games {
		out = append(out, models.GameSummary{ID: g.ID, PlayerNames: g.PlayerNames, RoundCount: len(g.Rounds), CreatedAt: g.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) LatestGameID(_ context.Context) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextID == 0 {
		return 0, fmt.Errorf("latest game: %w", database.ErrNotFound)
	}
	return m.nextID, nil
}

func (m *memStore) PriorTotals(_ context.Context, gameID int32) (models.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return models.Totals{}, fmt.Errorf("game %d: %w", gameID, database.ErrNotFound)
	}
	var t models.Totals
	for _, r := range g.Rounds {
		t = t.Add(r.Deltas())
	}
	return t, nil
}

func (m *memStore) AppendRound(_ context.Context, gameID int32, r models.Round) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return 0, m.failWrites
	}
	g, ok := m.games[gameID]
	if !ok {
		return 0, fmt.Errorf("game %d: %w", gameID, database.ErrNotFound)
	}
	var last int32
	for _, existing := range g.Rounds {
		last = max(last, existing.Index)
	}
	r.Index = last + 1
	g.Rounds = append(g.Rounds, r)
	return r.Index, nil
}

func (m *memStore) UpdateRound(_ context.Context, gameID, index int32, r models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	g, ok := m.games[gameID]
	if !ok {
		return fmt.Errorf("game %d: %w", gameID, database.ErrNotFound)
	}
	for i := range g.Rounds {
		if g.Rounds[i].Index == index {
			r.Index = index
			g.Rounds[i] = r
			return nil
		}
	}
	return fmt.Errorf("round %d: %w", index, database.ErrNotFound)
}

func (m *memStore) DeleteRound(_ context.Context, gameID, index int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	g, ok := m.games[gameID]
	if !ok {
		return fmt.Errorf("game %d: %w", gameID, database.ErrNotFound)
	}
	for i := range g.Rounds {
		if g.Rounds[i].Index == index {
			g.Rounds = append(g.Rounds[:i], g.Rounds[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("round %d: %w", index, database.ErrNotFound)
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) Close() error { return nil }

func (m *memStore) rounds(gameID int32) []models.Round {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Round(nil), m.games[gameID].Rounds...)
}
