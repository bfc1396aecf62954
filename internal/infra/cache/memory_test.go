package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

func sampleResult(title string) *domain.RankedResult[domain.EventRecord] {
	return &domain.RankedResult[domain.EventRecord]{
		Records: []domain.Scored[domain.EventRecord]{{
			Record: domain.EventRecord{ID: "e1", Title: title, Source: "test"},
			Score:  0.8,
		}},
		Meta: domain.Meta{Attempted: 2, Succeeded: 1},
	}
}

func TestMemoryCacheRoundtrip(t *testing.T) {
	c := NewMemoryCache[domain.EventRecord]()
	ctx := context.Background()

	if got, err := c.Get(ctx, "missing"); err != nil || got != nil {
		t.Fatalf("miss must be (nil, nil), got (%v, %v)", got, err)
	}

	want := sampleResult("jazz night")
	if err := c.Put(ctx, "k1", want, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got.Records) != 1 || got.Records[0].Record.Title != "jazz night" {
		t.Fatalf("roundtrip lost the record: %+v", got)
	}
	if got.Meta.Attempted != 2 || got.Meta.Succeeded != 1 {
		t.Errorf("roundtrip lost metadata: %+v", got.Meta)
	}

	// The stored value is a snapshot; mutating the returned copy must not
	// leak back into the cache.
	got.Records[0].Record.Title = "mutated"
	again, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if again.Records[0].Record.Title != "jazz night" {
		t.Errorf("cache entry mutated through a returned copy")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemoryCache[domain.EventRecord]()
	ctx := context.Background()

	if err := c.Put(ctx, "k1", sampleResult("fleeting"), 20*time.Millisecond); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expired entry must read as a miss")
	}
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache[domain.EventRecord]()
	ctx := context.Background()

	if err := c.Put(ctx, "k1", sampleResult("durable"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Errorf("zero-TTL entry must not expire")
	}
}

func TestMemoryCacheDeleteOlderThan(t *testing.T) {
	c := NewMemoryCache[domain.EventRecord]()
	ctx := context.Background()

	if err := c.Put(ctx, "old", sampleResult("old"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := c.Put(ctx, "new", sampleResult("new"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := c.DeleteOlderThan(ctx, 15*time.Millisecond); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got, _ := c.Get(ctx, "old"); got != nil {
		t.Errorf("old entry must be purged")
	}
	if got, _ := c.Get(ctx, "new"); got == nil {
		t.Errorf("fresh entry must survive the purge")
	}
}
