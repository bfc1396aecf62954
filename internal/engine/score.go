package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// Relevance factor weights. They sum to 1.0 so a record maxing every factor
// lands exactly at the score ceiling.
const (
	weightSource   = 0.20
	weightKeyword  = 0.15
	weightInterest = 0.20
	weightCategory = 0.10
	weightDistance = 0.15
	weightRecency  = 0.10
	weightFree     = 0.10
)

// distanceNormKm normalizes inverse distance: anything at or beyond 50km
// contributes nothing.
const distanceNormKm = 50.0

// defaultHorizon normalizes recency when the query declares no time window.
const defaultHorizon = 168 * time.Hour

// Optional record facets. Record types implement whichever apply; a record
// lacking a facet contributes 0 for that factor, never a penalty.
type geoRecord interface {
	Coords() (lat, lon float64, ok bool)
}

type timedRecord interface {
	StartAt() (time.Time, bool)
}

type freeRecord interface {
	FreeOfCharge() bool
}

type searchableRecord interface {
	SearchText() string
}

type categorizedRecord interface {
	CategoryName() string
}

type relevanceRanker[R domain.Record] struct {
	now func() time.Time
}

// NewRelevanceRanker returns the multi-factor ranker used for events and
// search hits. The ordering is deterministic: identical query and identical
// survivors always yield the identical result.
func NewRelevanceRanker[R domain.Record]() Ranker[R] {
	return &relevanceRanker[R]{now: time.Now}
}

func (r *relevanceRanker[R]) Rank(q domain.Query, groups []Group[R]) []domain.Scored[R] {
	now := r.now()

	type row struct {
		scored  domain.Scored[R]
		dist    float64
		hasDist bool
		weight  float64
		key     string
	}
	rows := make([]row, 0, len(groups))

	for _, g := range groups {
		rec := any(g.Record)

		// Records outside the declared time window are excluded outright,
		// not down-weighted.
		var start time.Time
		hasStart := false
		if tr, ok := rec.(timedRecord); ok {
			if s, ok2 := tr.StartAt(); ok2 {
				start, hasStart = s, true
				if !q.Window.IsZero() && !q.Window.Contains(start) {
					continue
				}
			}
		}

		score := 0.0
		var matched []string

		var text string
		if sr, ok := rec.(searchableRecord); ok {
			text = strings.ToLower(sr.SearchText())
		}

		if text != "" && len(q.Terms) > 0 {
			hits := 0
			for _, t := range q.Terms {
				t = strings.ToLower(strings.TrimSpace(t))
				if t != "" && strings.Contains(text, t) {
					hits++
					matched = append(matched, "keyword:"+t)
				}
			}
			score += weightKeyword * clamp01(float64(hits)/float64(len(q.Terms)))
		}

		if text != "" && len(q.Interests) > 0 {
			category := ""
			if cr, ok := rec.(categorizedRecord); ok {
				category = strings.ToLower(cr.CategoryName())
			}
			var kwFactor, catFactor float64
			for _, in := range q.Interests {
				conf := clamp01(in.Confidence)
				if kw := strings.ToLower(strings.TrimSpace(in.Keyword)); kw != "" && strings.Contains(text, kw) {
					kwFactor += conf
					matched = append(matched, "interest:"+kw)
				}
				if cat := strings.ToLower(strings.TrimSpace(in.Category)); cat != "" && cat == category {
					catFactor += conf
					matched = append(matched, "category:"+cat)
				}
			}
			score += weightInterest * clamp01(kwFactor)
			score += weightCategory * clamp01(catFactor)
		}

		dist := 0.0
		hasDist := false
		if gr, ok := rec.(geoRecord); ok && q.Coord != nil {
			if lat, lon, ok2 := gr.Coords(); ok2 {
				dist = domain.DistanceKm(*q.Coord, domain.Coordinates{Latitude: lat, Longitude: lon})
				hasDist = true
				if q.RadiusKm > 0 && dist > q.RadiusKm {
					continue
				}
				score += weightDistance * clamp01(1-dist/distanceNormKm)
				if dist <= distanceNormKm {
					matched = append(matched, "nearby")
				}
			}
		}

		if hasStart && start.After(now) {
			horizon := defaultHorizon
			if !q.Window.IsZero() {
				horizon = q.Window.End.Sub(q.Window.Start)
			}
			if horizon > 0 {
				score += weightRecency * clamp01(1-float64(start.Sub(now))/float64(horizon))
			}
		}

		if fr, ok := rec.(freeRecord); ok && fr.FreeOfCharge() {
			score += weightFree
			matched = append(matched, "free")
		}

		score += weightSource * clamp01(g.Weight)

		sort.Strings(matched)
		rows = append(rows, row{
			scored: domain.Scored[R]{
				Record:        g.Record,
				Score:         clamp01(score),
				Matched:       matched,
				Corroborators: g.Corroborators,
			},
			dist:    dist,
			hasDist: hasDist,
			weight:  g.Weight,
			key:     g.Record.IdentityKey(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].scored.Score != rows[j].scored.Score {
			return rows[i].scored.Score > rows[j].scored.Score
		}
		di, dj := math.Inf(1), math.Inf(1)
		if rows[i].hasDist {
			di = rows[i].dist
		}
		if rows[j].hasDist {
			dj = rows[j].dist
		}
		if di != dj {
			return di < dj
		}
		if rows[i].weight != rows[j].weight {
			return rows[i].weight > rows[j].weight
		}
		return rows[i].key < rows[j].key
	})

	out := make([]domain.Scored[R], len(rows))
	for i, r := range rows {
		out[i] = r.scored
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
