package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Capability tags declare which kind of record a provider can produce.
type Capability string

const (
	CapabilityLocation Capability = "location"
	CapabilityEvent    Capability = "event"
	CapabilitySearch   Capability = "search"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Interest is a pre-extracted topic with its own confidence. How interests
// are extracted is the caller's concern; the engine only scores against them.
type Interest struct {
	Keyword    string  `json:"keyword"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
}

// TimeWindow bounds event start times. A zero window disables time filtering.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Query is an immutable description of one aggregation request. The deadline
// is absolute and bounds the whole fan-out, not any single provider call.
type Query struct {
	Need      Capability
	Terms     []string
	IP        string
	Coord     *Coordinates
	RadiusKm  float64
	Window    TimeWindow
	Interests []Interest
	Limit     int
	Deadline  time.Time
}

// Key returns a stable fingerprint of the query's semantically relevant
// fields. The deadline is excluded so that retries of the same
// logical query hit the same cache entry.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(string(q.Need))
	b.WriteByte('\n')

	terms := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)
	b.WriteString(strings.Join(terms, ","))
	b.WriteByte('\n')

	b.WriteString(q.IP)
	b.WriteByte('\n')

	if q.Coord != nil {
		fmt.Fprintf(&b, "%.4f,%.4f", q.Coord.Latitude, q.Coord.Longitude)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%.1f\n", q.RadiusKm)

	if !q.Window.IsZero() {
		fmt.Fprintf(&b, "%d,%d", q.Window.Start.Truncate(time.Minute).Unix(), q.Window.End.Truncate(time.Minute).Unix())
	}
	b.WriteByte('\n')

	interests := make([]string, 0, len(q.Interests))
	for _, in := range q.Interests {
		interests = append(interests, fmt.Sprintf("%s|%s|%.2f", strings.ToLower(in.Keyword), strings.ToLower(in.Category), in.Confidence))
	}
	sort.Strings(interests)
	b.WriteString(strings.Join(interests, ","))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%d", q.Limit)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
