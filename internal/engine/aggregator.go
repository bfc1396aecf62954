package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

const (
	// cacheGetBudget bounds the cache lookup so a slow backend cannot eat
	// into the provider deadline.
	cacheGetBudget = 50 * time.Millisecond
	cachePutBudget = 2 * time.Second

	defaultQueryBudget = 10 * time.Second
)

// Engine fans one query out to every eligible provider, races the calls
// against the query deadline, and folds whatever completed into a single
// ranked result. Providers run fully in parallel; the only shared state is
// the governor's per-provider call windows.
type Engine[R domain.Record] struct {
	registry *domain.Registry[R]
	governor *Governor
	cache    domain.ResultCache[R]
	ranker   Ranker[R]
	cacheTTL time.Duration
	log      zerolog.Logger
}

func New[R domain.Record](
	reg *domain.Registry[R],
	gov *Governor,
	cache domain.ResultCache[R],
	ranker Ranker[R],
	cacheTTL time.Duration,
	log zerolog.Logger,
) *Engine[R] {
	return &Engine[R]{
		registry: reg,
		governor: gov,
		cache:    cache,
		ranker:   ranker,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

type callResult[R domain.Record] struct {
	provider string
	weight   float64
	records  []R
	outcome  domain.Outcome
	latency  time.Duration
}

// Aggregate runs one fan-out/fan-in pass for q. It always returns a
// well-formed result: provider failures, timeouts and rate-limit skips are
// recorded in the metadata, never surfaced as errors. The returned error is
// reserved for reasons outside the aggregation itself.
func (e *Engine[R]) Aggregate(ctx context.Context, q domain.Query) (*domain.RankedResult[R], error) {
	start := time.Now()
	key := q.Key()

	if e.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, cacheGetBudget)
		cached, err := e.cache.Get(cctx, key)
		cancel()
		if err == nil && cached != nil {
			cached.Meta.CacheHit = true
			e.summarize(q, &cached.Meta, time.Since(start))
			return cached, nil
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			e.log.Warn().Err(err).Msg("cache get failed")
		}
	}

	deadline := q.Deadline
	if deadline.IsZero() {
		deadline = start.Add(defaultQueryBudget)
	}
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var meta domain.Meta
	remaining := time.Until(deadline)
	if remaining <= 0 {
		// Fail fast: no zero-budget work.
		meta.TotalLatency = time.Since(start)
		res := &domain.RankedResult[R]{Records: []domain.Scored[R]{}, Meta: meta}
		e.summarize(q, &meta, meta.TotalLatency)
		return res, nil
	}

	providers := e.registry.Providers()
	results := make(chan callResult[R], len(providers))
	pending := make(map[string]struct{}, len(providers))

	for _, p := range providers {
		desc := p.Descriptor()
		if !desc.Serves(q.Need) {
			continue
		}
		meta.Attempted++
		now := time.Now()
		if e.governor != nil && !e.governor.Allow(desc, now) {
			meta.Outcomes = append(meta.Outcomes, domain.ProviderOutcome{
				Provider: desc.Name,
				Outcome:  domain.OutcomeRateLimited,
			})
			e.log.Debug().Str("provider", desc.Name).Msg("rate limited, skipping")
			continue
		}
		if e.governor != nil {
			e.governor.Record(desc.Name, now)
		}
		pending[desc.Name] = struct{}{}
		go func(p domain.Provider[R]) {
			results <- e.callProvider(ctx, p, q, deadline)
		}(p)
	}
	launched := len(pending)

	// Single barrier: all launched calls done, or the deadline, whichever
	// comes first. Late calls are abandoned; the buffered channel lets them
	// finish their send without anyone listening.
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	collected := make([]callResult[R], 0, launched)
collect:
	for len(collected) < launched {
		select {
		case res := <-results:
			collected = append(collected, res)
			delete(pending, res.provider)
		case <-timer.C:
			break collect
		}
	}

	// Deterministic downstream order regardless of completion order.
	sort.Slice(collected, func(i, j int) bool { return collected[i].provider < collected[j].provider })

	var candidates []Candidate[R]
	arrival := 0
	for _, c := range collected {
		meta.Outcomes = append(meta.Outcomes, domain.ProviderOutcome{
			Provider: c.provider,
			Outcome:  c.outcome,
			Latency:  c.latency,
		})
		e.log.Debug().
			Str("provider", c.provider).
			Str("outcome", string(c.outcome)).
			Dur("latency", c.latency).
			Int("records", len(c.records)).
			Msg("provider call finished")
		if c.outcome != domain.OutcomeSuccess {
			continue
		}
		meta.Succeeded++
		for _, rec := range c.records {
			candidates = append(candidates, Candidate[R]{Record: rec, Weight: c.weight, Arrival: arrival})
			arrival++
		}
	}
	for name := range pending {
		meta.Outcomes = append(meta.Outcomes, domain.ProviderOutcome{
			Provider: name,
			Outcome:  domain.OutcomeTimeout,
			Latency:  remaining,
		})
		e.log.Warn().Str("provider", name).Msg("abandoned at deadline")
	}
	sort.Slice(meta.Outcomes, func(i, j int) bool { return meta.Outcomes[i].Provider < meta.Outcomes[j].Provider })

	scored := e.ranker.Rank(q, Dedupe(candidates))
	if scored == nil {
		scored = []domain.Scored[R]{}
	}
	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	meta.TotalLatency = time.Since(start)
	res := &domain.RankedResult[R]{Records: scored, Meta: meta}

	// Only non-empty results are worth memoizing; an empty result usually
	// means providers were down or throttled, and should be retried sooner
	// than the TTL.
	if e.cache != nil && len(scored) > 0 {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cachePutBudget)
		if err := e.cache.Put(pctx, key, res, e.cacheTTL); err != nil {
			e.log.Warn().Err(err).Msg("cache put failed")
		}
		cancel()
	}

	e.summarize(q, &meta, meta.TotalLatency)
	return res, nil
}

// callProvider runs one provider under its own timeout, recovering panics so
// a buggy provider cannot take down the rest of the fan-out.
func (e *Engine[R]) callProvider(ctx context.Context, p domain.Provider[R], q domain.Query, deadline time.Time) (out callResult[R]) {
	desc := p.Descriptor()
	out = callResult[R]{provider: desc.Name, weight: desc.Weight, outcome: domain.OutcomeError}
	defer func() {
		if r := recover(); r != nil {
			out.outcome = domain.OutcomeError
			e.log.Error().Str("provider", desc.Name).Interface("panic", r).Msg("provider panicked")
		}
	}()

	timeout := time.Until(deadline)
	if desc.CallTimeout > 0 && desc.CallTimeout < timeout {
		timeout = desc.CallTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	payload, err := p.Fetch(cctx, q)
	raw := domain.RawResult{Provider: desc.Name, Payload: payload, Latency: time.Since(started), Err: err}
	out.latency = raw.Latency
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() != nil {
			out.outcome = domain.OutcomeTimeout
		}
		e.log.Warn().Str("provider", desc.Name).Dur("latency", raw.Latency).Err(err).Msg("provider call failed")
		return out
	}

	records, err := p.Normalize(raw.Payload)
	if err != nil {
		out.outcome = domain.OutcomeBadPayload
		e.log.Warn().Str("provider", desc.Name).Err(err).Msg("provider payload rejected")
		return out
	}
	out.outcome = domain.OutcomeSuccess
	out.records = records
	return out
}

func (e *Engine[R]) summarize(q domain.Query, m *domain.Meta, elapsed time.Duration) {
	e.log.Info().
		Str("need", string(q.Need)).
		Int("attempted", m.Attempted).
		Int("succeeded", m.Succeeded).
		Bool("cache_hit", m.CacheHit).
		Dur("latency", elapsed).
		Msg("aggregation complete")
}
