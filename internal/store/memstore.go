package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memGateway is a development and test implementation used when no DB is configured.
type memGateway struct {
	mu sync.RWMutex

	nextRef int64

	matches  map[string]*MatchSummary
	byUser   map[string][]string // userID -> match refs (append order)
	profiles map[string]*Profile
	moves    map[string]map[string]int // ref -> userID -> move count
}

func NewMemoryGateway() Gateway {
	return &memGateway{
		matches:  make(map[string]*MatchSummary),
		byUser:   make(map[string][]string),
		profiles: make(map[string]*Profile),
		moves:    make(map[string]map[string]int),
	}
}

func (m *memGateway) CreateMatch(ctx context.Context, roomID string, initial PlayerRecord, fen string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRef++
	ref := fmt.Sprintf("mem-%d", m.nextRef)
	m.matches[ref] = &MatchSummary{
		Ref:       ref,
		RoomID:    roomID,
		FEN:       fen,
		Status:    "in_progress",
		Players:   []PlayerRecord{initial},
		StartedAt: time.Now(),
	}
	m.byUser[initial.UserID] = append(m.byUser[initial.UserID], ref)
	m.moves[ref] = map[string]int{}
	return ref, nil
}

func (m *memGateway) AppendPlayer(ctx context.Context, ref string, p PlayerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[ref]
	if !ok {
		return ErrNotFound
	}
	match.Players = append(match.Players, p)
	m.byUser[p.UserID] = append(m.byUser[p.UserID], ref)
	return nil
}

func (m *memGateway) RecordMove(ctx context.Context, ref string, mv MoveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[ref]
	if !ok {
		return ErrNotFound
	}
	match.FEN = mv.FEN
	match.MovesSAN = append(match.MovesSAN, mv.SAN)
	if counts := m.moves[ref]; counts != nil {
		counts[mv.UserID] = mv.MoveCount
	}
	return nil
}

func (m *memGateway) FinalizeMatch(ctx context.Context, ref, status, winnerID string, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[ref]
	if !ok {
		return ErrNotFound
	}
	match.Status = status
	match.WinnerID = winnerID
	match.EndedAt = endedAt
	return nil
}

func (m *memGateway) IncrementStats(ctx context.Context, userID string, d StatsDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &Profile{UserID: userID}
		m.profiles[userID] = p
	}
	p.Wins += d.Wins
	p.Losses += d.Losses
	p.Draws += d.Draws
	return nil
}

func (m *memGateway) DeleteMatch(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, ref)
	delete(m.moves, ref)
	return nil
}

func (m *memGateway) Profile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *memGateway) RecentMatches(ctx context.Context, userID string, limit int) ([]*MatchSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*MatchSummary
	for _, ref := range m.byUser[userID] {
		match, ok := m.matches[ref]
		if !ok || match.EndedAt.IsZero() {
			continue
		}
		copy := *match
		items = append(items, &copy)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].Ref > items[j].Ref
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
