package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// Ranker turns deduplicated survivors into the final ordered result. The
// location ranker selects a single consensus winner; the relevance ranker
// produces an ordered list.
type Ranker[R domain.Record] interface {
	Rank(q domain.Query, groups []Group[R]) []domain.Scored[R]
}

// Consensus adjustment steps. A country-level conflict costs twice what an
// agreement earns, so one outlier cannot overrule several agreeing providers.
const (
	agreementStep    = 0.10
	disagreementStep = 0.20
	accuracyFloor    = 0.30
	accuracyCeil     = 0.95
)

type locationConsensus struct{}

// NewLocationConsensus returns the single-winner ranker for location records.
func NewLocationConsensus() Ranker[domain.LocationRecord] {
	return locationConsensus{}
}

func (locationConsensus) Rank(q domain.Query, groups []Group[domain.LocationRecord]) []domain.Scored[domain.LocationRecord] {
	if len(groups) == 0 {
		return nil
	}

	lead := 0
	for i := 1; i < len(groups); i++ {
		if leadsOver(groups[i], groups[lead]) {
			lead = i
		}
	}
	leader := groups[lead]

	acc := leader.Record.Accuracy
	var matched []string
	// A provider that reported the same country and city was already folded
	// into the leader by deduplication; it shows up here as a corroborator.
	for _, source := range leader.Corroborators {
		acc = math.Min(accuracyCeil, acc+agreementStep)
		matched = append(matched, "agree:"+source)
	}
	for i, g := range groups {
		if i == lead {
			continue
		}
		switch {
		case sameCity(g.Record, leader.Record):
			acc = math.Min(accuracyCeil, acc+agreementStep)
			matched = append(matched, "agree:"+g.Record.Source)
		case !sameCountry(g.Record, leader.Record):
			acc = math.Max(accuracyFloor, acc-disagreementStep)
			matched = append(matched, "conflict:"+g.Record.Source)
		}
	}
	acc = math.Max(accuracyFloor, math.Min(accuracyCeil, acc))
	sort.Strings(matched)

	rec := leader.Record
	rec.Accuracy = acc
	return []domain.Scored[domain.LocationRecord]{{
		Record:        rec,
		Score:         acc,
		Matched:       matched,
		Corroborators: leader.Corroborators,
	}}
}

func leadsOver(a, b Group[domain.LocationRecord]) bool {
	if a.Record.Accuracy != b.Record.Accuracy {
		return a.Record.Accuracy > b.Record.Accuracy
	}
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Record.IdentityKey() < b.Record.IdentityKey()
}

func sameCountry(a, b domain.LocationRecord) bool {
	if a.CountryCode != "" && b.CountryCode != "" {
		return strings.EqualFold(a.CountryCode, b.CountryCode)
	}
	return strings.EqualFold(a.Country, b.Country)
}

func sameCity(a, b domain.LocationRecord) bool {
	return sameCountry(a, b) && a.City != "" && strings.EqualFold(a.City, b.City)
}
