package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryDirectory is a development and test implementation.
type MemoryDirectory struct {
	mu  sync.RWMutex
	ids map[string]Identity
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{ids: make(map[string]Identity)}
}

func (d *MemoryDirectory) Lookup(ctx context.Context, userID string) (*Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[strings.TrimSpace(userID)]
	if !ok {
		return nil, ErrNotFound
	}
	copy := id
	return &copy, nil
}

func (d *MemoryDirectory) Put(ctx context.Context, id Identity) error {
	d.mu.Lock()
	d.ids[strings.TrimSpace(id.UserID)] = id
	d.mu.Unlock()
	return nil
}
