package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// memoryCache is the keyless-local and test backend. Values are stored as
// JSON so callers get a copy back, same as the redis path.
type memoryCache[R domain.Record] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data     []byte
	storedAt time.Time
	expireAt time.Time // zero = no expiry
}

func NewMemoryCache[R domain.Record]() domain.ResultCache[R] {
	return &memoryCache[R]{entries: make(map[string]memoryEntry)}
}

func (m *memoryCache[R]) Get(ctx context.Context, key string) (*domain.RankedResult[R], error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expireAt.IsZero() && time.Now().After(e.expireAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var res domain.RankedResult[R]
	if err := json.Unmarshal(e.data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *memoryCache[R]) Put(ctx context.Context, key string, res *domain.RankedResult[R], ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	e := memoryEntry{data: data, storedAt: time.Now()}
	if ttl > 0 {
		e.expireAt = e.storedAt.Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *memoryCache[R]) DeleteOlderThan(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	for k, e := range m.entries {
		if e.storedAt.Before(cutoff) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}
