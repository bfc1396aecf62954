package engine

import (
	"sync"
	"time"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// Governor tracks per-provider sliding-window call budgets. It never blocks
// or sleeps: a provider over budget is simply skipped for the current query,
// because the fan-out runs under a hard deadline and queuing would break it.
type Governor struct {
	mu      sync.Mutex
	windows map[string]*callWindow
}

type callWindow struct {
	mu    sync.Mutex
	calls []time.Time
}

func NewGovernor() *Governor {
	return &Governor{windows: make(map[string]*callWindow)}
}

func (g *Governor) window(name string) *callWindow {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.windows[name]
	if !ok {
		w = &callWindow{}
		g.windows[name] = w
	}
	return w
}

// Allow reports whether the provider may be called at now. Old entries are
// evicted on every check so the window never grows unbounded.
func (g *Governor) Allow(desc domain.Descriptor, now time.Time) bool {
	if !desc.Rate.Limited() {
		return true
	}
	w := g.window(desc.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now.Add(-desc.Rate.Window))
	return len(w.calls) < desc.Rate.Calls
}

// Record notes that a call was actually made. Skipped providers are not
// recorded.
func (g *Governor) Record(name string, now time.Time) {
	w := g.window(name)
	w.mu.Lock()
	w.calls = append(w.calls, now)
	w.mu.Unlock()
}

// prune drops entries older than cutoff. Caller holds w.mu.
func (w *callWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.calls) && w.calls[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}

// RateStatus describes a provider's current budget.
type RateStatus struct {
	Limited   bool          `json:"rate_limiting"`
	Limit     int           `json:"calls_limit,omitempty"`
	Window    time.Duration `json:"window,omitempty"`
	Used      int           `json:"calls_made"`
	Remaining int           `json:"remaining_calls"`
	ResetAt   *time.Time    `json:"reset_time,omitempty"`
}

func (g *Governor) Status(desc domain.Descriptor, now time.Time) RateStatus {
	if !desc.Rate.Limited() {
		return RateStatus{Limited: false}
	}
	w := g.window(desc.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now.Add(-desc.Rate.Window))

	st := RateStatus{
		Limited: true,
		Limit:   desc.Rate.Calls,
		Window:  desc.Rate.Window,
		Used:    len(w.calls),
	}
	st.Remaining = st.Limit - st.Used
	if st.Remaining < 0 {
		st.Remaining = 0
	}
	if len(w.calls) > 0 {
		reset := w.calls[0].Add(desc.Rate.Window)
		st.ResetAt = &reset
	}
	return st
}
