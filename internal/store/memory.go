package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu  sync.Mutex
	doc Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{doc: Record{}}
}

func (m *Memory) Get(ctx context.Context, keys ...string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return pick(m.doc, keys), nil
}

func (m *Memory) Set(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, raw := range rec {
		m.doc[key] = append(json.RawMessage(nil), raw...)
	}
	return nil
}
