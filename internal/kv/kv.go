// Package kv is the small keyed string store behind the daily check-in:
// last login timestamps, per-day news and uncle letter milestones.
package kv

import (
	"context"
	"sync"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// ValueStore is the key-value part of the progress store.
type ValueStore interface {
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
}

type storeKV struct {
	st ValueStore
}

// FromStore keeps check-in state next to the rest of the player progress.
func FromStore(st ValueStore) Store {
	return storeKV{st: st}
}

func (s storeKV) Get(_ context.Context, key string) (string, bool, error) {
	return s.st.GetValue(key)
}

func (s storeKV) Set(_ context.Context, key, value string) error {
	return s.st.SetValue(key, value)
}
