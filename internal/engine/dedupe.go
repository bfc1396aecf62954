package engine

import "github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"

// Candidate pairs a normalized record with its provenance.
type Candidate[R domain.Record] struct {
	Record R
	// Weight is the producing provider's reliability weight.
	Weight float64
	// Arrival is the record's position in the deterministic collection
	// order, used only as the last dedup tie-break.
	Arrival int
}

// Group is a deduplicated survivor: one representative record plus the names
// of providers whose duplicates were dropped in its favor.
type Group[R domain.Record] struct {
	Candidate[R]
	Corroborators []string
}

// Dedupe collapses candidates sharing an identity key down to one
// representative each: highest provider weight wins, then highest
// self-reported confidence, then earliest arrival. Losers are dropped whole
// rather than merged field-by-field; only their source names survive, as
// corroboration input for consensus scoring. Idempotent.
func Dedupe[R domain.Record](cands []Candidate[R]) []Group[R] {
	byKey := make(map[string]int, len(cands))
	groups := make([]Group[R], 0, len(cands))

	for _, c := range cands {
		key := c.Record.IdentityKey()
		idx, ok := byKey[key]
		if !ok {
			byKey[key] = len(groups)
			groups = append(groups, Group[R]{Candidate: c})
			continue
		}
		g := &groups[idx]
		if beats(c, g.Candidate) {
			loser := g.Candidate.Record.SourceName()
			g.Candidate = c
			g.Corroborators = corroborate(g.Corroborators, loser, c.Record.SourceName())
		} else {
			g.Corroborators = corroborate(g.Corroborators, c.Record.SourceName(), g.Record.SourceName())
		}
	}
	return groups
}

func beats[R domain.Record](a, b Candidate[R]) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.Record.Confidence() != b.Record.Confidence() {
		return a.Record.Confidence() > b.Record.Confidence()
	}
	return a.Arrival < b.Arrival
}

func corroborate(list []string, name, keep string) []string {
	if name == "" || name == keep {
		return list
	}
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}
