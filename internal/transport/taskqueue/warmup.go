// Package taskqueue runs cache-warmup aggregations from an asynq queue, so
// anticipated queries are answered from cache instead of fanning out on the
// user's request path.
package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/config"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/engine"
)

const TypeWarmup = "discovery:warmup"

// WarmupPayload describes the query to pre-run. Need selects the engine.
type WarmupPayload struct {
	Need        string              `json:"need"`
	IP          string              `json:"ip,omitempty"`
	Terms       []string            `json:"terms,omitempty"`
	Coord       *domain.Coordinates `json:"coord,omitempty"`
	RadiusKm    float64             `json:"radius_km,omitempty"`
	WindowHours int                 `json:"window_hours,omitempty"`
	Interests   []domain.Interest   `json:"interests,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

func NewWarmupTask(p WarmupPayload) (*asynq.Task, error) {
	switch domain.Capability(p.Need) {
	case domain.CapabilityLocation, domain.CapabilityEvent, domain.CapabilitySearch:
	default:
		return nil, fmt.Errorf("unknown need %q", p.Need)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWarmup, data, asynq.MaxRetry(2)), nil
}

// Worker dispatches warmup tasks to the right engine.
type Worker struct {
	location *engine.Engine[domain.LocationRecord]
	events   *engine.Engine[domain.EventRecord]
	search   *engine.Engine[domain.SearchHit]
	budgets  config.BudgetConfig
	log      zerolog.Logger
}

func NewWorker(
	location *engine.Engine[domain.LocationRecord],
	events *engine.Engine[domain.EventRecord],
	search *engine.Engine[domain.SearchHit],
	budgets config.BudgetConfig,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		location: location,
		events:   events,
		search:   search,
		budgets:  budgets,
		log:      log.With().Str("component", "taskqueue").Logger(),
	}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWarmup, w.HandleWarmup)
}

func (w *Worker) HandleWarmup(ctx context.Context, t *asynq.Task) error {
	var p WarmupPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode warmup payload: %w", err)
	}

	q := domain.Query{
		Need:      domain.Capability(p.Need),
		Terms:     p.Terms,
		IP:        p.IP,
		Coord:     p.Coord,
		RadiusKm:  p.RadiusKm,
		Interests: p.Interests,
		Limit:     p.Limit,
	}
	if p.WindowHours > 0 {
		now := time.Now()
		q.Window = domain.TimeWindow{Start: now, End: now.Add(time.Duration(p.WindowHours) * time.Hour)}
	}

	w.log.Info().Str("need", p.Need).Msg("warming up query")

	var err error
	switch q.Need {
	case domain.CapabilityLocation:
		q.Deadline = time.Now().Add(w.budgets.Location)
		_, err = w.location.Aggregate(ctx, q)
	case domain.CapabilityEvent:
		q.Deadline = time.Now().Add(w.budgets.Event)
		_, err = w.events.Aggregate(ctx, q)
	case domain.CapabilitySearch:
		q.Deadline = time.Now().Add(w.budgets.Search)
		_, err = w.search.Aggregate(ctx, q)
	default:
		return fmt.Errorf("unknown need %q: %w", p.Need, asynq.SkipRetry)
	}
	return err
}
