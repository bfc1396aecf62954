package engine

import (
	"testing"
	"time"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

func jazzNight(source string, free bool) domain.EventRecord {
	start := time.Date(2026, 9, 4, 20, 0, 0, 0, time.UTC)
	return domain.EventRecord{
		ID:     source + "-1",
		Title:  "Jazz Night",
		Start:  &start,
		IsFree: free,
		Source: source,
	}
}

func TestDedupeHigherPrioritySourceWins(t *testing.T) {
	cands := []Candidate[domain.EventRecord]{
		{Record: jazzNight("allevents", true), Weight: 0.5, Arrival: 0},
		{Record: jazzNight("ticketmaster", false), Weight: 0.9, Arrival: 1},
	}

	groups := Dedupe(cands)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Record.Source != "ticketmaster" {
		t.Errorf("higher-priority source must win, got %q", g.Record.Source)
	}
	if g.Record.IsFree {
		t.Errorf("fields from the losing record must not bleed into the winner")
	}
	if len(g.Corroborators) != 1 || g.Corroborators[0] != "allevents" {
		t.Errorf("loser must be recorded as corroborator, got %v", g.Corroborators)
	}
}

func TestDedupeKeepsDistinctRecords(t *testing.T) {
	other := jazzNight("seatgeek", false)
	other.Title = "Blues Evening"

	groups := Dedupe([]Candidate[domain.EventRecord]{
		{Record: jazzNight("ticketmaster", false), Weight: 0.9},
		{Record: other, Weight: 0.8, Arrival: 1},
	})
	if len(groups) != 2 {
		t.Fatalf("distinct events must not collapse, got %d groups", len(groups))
	}
}

func TestDedupeConfidenceTieBreak(t *testing.T) {
	low := domain.LocationRecord{Country: "US", City: "New York", Accuracy: 0.65, Source: "freegeoip"}
	high := domain.LocationRecord{Country: "US", City: "New York", Accuracy: 0.85, Source: "ipstack"}

	groups := Dedupe([]Candidate[domain.LocationRecord]{
		{Record: low, Weight: 0.7, Arrival: 0},
		{Record: high, Weight: 0.7, Arrival: 1},
	})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Record.Source != "ipstack" {
		t.Errorf("equal weight must fall back to confidence, got %q", groups[0].Record.Source)
	}
}

func TestDedupeArrivalTieBreak(t *testing.T) {
	first := domain.LocationRecord{Country: "US", City: "New York", Accuracy: 0.75, Source: "first"}
	second := domain.LocationRecord{Country: "US", City: "New York", Accuracy: 0.75, Source: "second"}

	groups := Dedupe([]Candidate[domain.LocationRecord]{
		{Record: first, Weight: 0.7, Arrival: 0},
		{Record: second, Weight: 0.7, Arrival: 1},
	})
	if groups[0].Record.Source != "first" {
		t.Errorf("full tie must keep the earliest arrival, got %q", groups[0].Record.Source)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	cands := []Candidate[domain.EventRecord]{
		{Record: jazzNight("ticketmaster", false), Weight: 0.9, Arrival: 0},
		{Record: jazzNight("seatgeek", true), Weight: 0.8, Arrival: 1},
		{Record: jazzNight("allevents", true), Weight: 0.5, Arrival: 2},
	}

	once := Dedupe(cands)

	again := make([]Candidate[domain.EventRecord], len(once))
	for i, g := range once {
		again[i] = g.Candidate
	}
	twice := Dedupe(again)

	if len(once) != len(twice) {
		t.Fatalf("idempotence violated: %d vs %d groups", len(once), len(twice))
	}
	for i := range once {
		if once[i].Record.Source != twice[i].Record.Source {
			t.Errorf("group %d representative changed: %q vs %q", i, once[i].Record.Source, twice[i].Record.Source)
		}
	}
}
