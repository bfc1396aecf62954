package engine

import (
	"testing"
	"time"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

func limitedDesc(name string, calls int, window time.Duration) domain.Descriptor {
	return domain.Descriptor{
		Name:         name,
		Capabilities: []domain.Capability{domain.CapabilityLocation},
		Rate:         domain.RatePolicy{Calls: calls, Window: window},
	}
}

func TestGovernorAllowsWithinBudget(t *testing.T) {
	g := NewGovernor()
	desc := limitedDesc("src", 3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !g.Allow(desc, now) {
			t.Fatalf("call %d should be allowed", i+1)
		}
		g.Record(desc.Name, now)
	}
	if g.Allow(desc, now) {
		t.Errorf("fourth call within the window must be denied")
	}
}

func TestGovernorEvictsExpiredEntries(t *testing.T) {
	g := NewGovernor()
	desc := limitedDesc("src", 1, time.Minute)
	t0 := time.Now()

	g.Record(desc.Name, t0)
	if g.Allow(desc, t0.Add(time.Second)) {
		t.Fatalf("budget exhausted, call must be denied")
	}
	if !g.Allow(desc, t0.Add(2*time.Minute)) {
		t.Errorf("entry outside the window must be evicted")
	}

	st := g.Status(desc, t0.Add(2*time.Minute))
	if st.Used != 0 {
		t.Errorf("expected 0 calls after eviction, got %d", st.Used)
	}
}

func TestGovernorUnlimitedByDefault(t *testing.T) {
	g := NewGovernor()
	desc := domain.Descriptor{Name: "free"}

	for i := 0; i < 100; i++ {
		if !g.Allow(desc, time.Now()) {
			t.Fatalf("provider without a rate policy must never be throttled")
		}
		g.Record(desc.Name, time.Now())
	}
	if st := g.Status(desc, time.Now()); st.Limited {
		t.Errorf("status must report no rate limiting")
	}
}

func TestGovernorStatus(t *testing.T) {
	g := NewGovernor()
	desc := limitedDesc("src", 5, time.Hour)
	t0 := time.Now()

	g.Record(desc.Name, t0)
	g.Record(desc.Name, t0.Add(time.Second))

	st := g.Status(desc, t0.Add(2*time.Second))
	if !st.Limited || st.Limit != 5 || st.Used != 2 || st.Remaining != 3 {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.ResetAt == nil || !st.ResetAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("reset time must be the oldest entry plus the window")
	}
}

func TestGovernorIndependentProviders(t *testing.T) {
	g := NewGovernor()
	a := limitedDesc("a", 1, time.Minute)
	b := limitedDesc("b", 1, time.Minute)
	now := time.Now()

	g.Record(a.Name, now)
	if g.Allow(a, now) {
		t.Errorf("provider a is out of budget")
	}
	if !g.Allow(b, now) {
		t.Errorf("provider b has its own budget")
	}
}
