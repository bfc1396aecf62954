package domain

import (
	"context"
	"time"
)

// Outcome classifies how a single provider call ended. Expected failures are
// values, not errors that abort the aggregation.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeBadPayload  Outcome = "bad_payload"
)

// RawResult is the ephemeral product of one provider call. It exists only
// between fetch and normalization.
type RawResult struct {
	Provider string
	Payload  []byte
	Latency  time.Duration
	Err      error
}

// ProviderOutcome is the per-call telemetry entry surfaced in result metadata.
type ProviderOutcome struct {
	Provider string        `json:"provider"`
	Outcome  Outcome       `json:"outcome"`
	Latency  time.Duration `json:"latency"`
}

// Scored pairs a surviving record with its relevance score and the factors
// that produced it.
type Scored[R Record] struct {
	Record  R        `json:"record"`
	Score   float64  `json:"score"`
	Matched []string `json:"matched,omitempty"`
	// Corroborators names providers whose duplicate records were dropped in
	// favor of this one.
	Corroborators []string `json:"corroborators,omitempty"`
}

// Meta lets callers distinguish "nothing found" from "everything failed"
// without catching errors.
type Meta struct {
	Attempted    int               `json:"providers_attempted"`
	Succeeded    int               `json:"providers_succeeded"`
	Outcomes     []ProviderOutcome `json:"outcomes,omitempty"`
	TotalLatency time.Duration     `json:"total_latency"`
	CacheHit     bool              `json:"cache_hit"`
}

// RankedResult is the only value that crosses the cache boundary and reaches
// callers. Immutable once produced.
type RankedResult[R Record] struct {
	Records []Scored[R] `json:"records"`
	Meta    Meta        `json:"meta"`
}

// ResultCache memoizes query keys to ranked results for a TTL. Get returns
// (nil, nil) on a miss. Backends handle their own locking.
type ResultCache[R Record] interface {
	Get(ctx context.Context, key string) (*RankedResult[R], error)
	Put(ctx context.Context, key string, res *RankedResult[R], ttl time.Duration) error
	DeleteOlderThan(ctx context.Context, olderThan time.Duration) error
}
