package domain

import (
	"math"
	"net/url"
	"strings"
	"time"
)

// Record is the normalized, provider-agnostic unit the engine aggregates.
// The identity key is a lossy fingerprint used only for deduplication: two
// records with equal keys are treated as the same real-world thing.
type Record interface {
	IdentityKey() string
	SourceName() string
	// Confidence is the record's self-reported accuracy in [0,1], or 0 for
	// record types that do not carry one. Used as a dedup tie-break.
	Confidence() float64
}

// LocationRecord is a resolved geographic position. Coordinates are pointers
// so that a missing coordinate stays absent instead of collapsing to the
// origin and matching everything near (0,0).
type LocationRecord struct {
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	City        string   `json:"city,omitempty"`
	Region      string   `json:"region,omitempty"`
	Country     string   `json:"country,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	PostalCode  string   `json:"postal_code,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Accuracy    float64  `json:"accuracy"`
	Source      string   `json:"source"`
}

func (r LocationRecord) IdentityKey() string {
	return strings.ToLower(strings.TrimSpace(r.Country)) + "|" + strings.ToLower(strings.TrimSpace(r.City))
}

func (r LocationRecord) SourceName() string { return r.Source }

func (r LocationRecord) Confidence() float64 { return r.Accuracy }

func (r LocationRecord) Coords() (lat, lon float64, ok bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return 0, 0, false
	}
	return *r.Latitude, *r.Longitude, true
}

// EventRecord is a discovered happening with a time and usually a place.
type EventRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Category    string     `json:"category,omitempty"`
	IsFree      bool       `json:"is_free"`
	Source      string     `json:"source"`
	URL         string     `json:"url,omitempty"`
}

// IdentityKey fingerprints an event by a normalized title prefix plus its
// start day, so the same event listed by two vendors collapses even when the
// descriptions and exact timestamps differ.
func (r EventRecord) IdentityKey() string {
	title := normalizeText(r.Title)
	if len(title) > 30 {
		title = title[:30]
	}
	day := "tbd"
	if r.Start != nil {
		day = r.Start.UTC().Format("2006-01-02")
	}
	return title + "|" + day
}

func (r EventRecord) SourceName() string { return r.Source }

func (r EventRecord) Confidence() float64 { return 0 }

func (r EventRecord) Coords() (lat, lon float64, ok bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return 0, 0, false
	}
	return *r.Latitude, *r.Longitude, true
}

func (r EventRecord) StartAt() (time.Time, bool) {
	if r.Start == nil {
		return time.Time{}, false
	}
	return *r.Start, true
}

func (r EventRecord) FreeOfCharge() bool { return r.IsFree }

func (r EventRecord) CategoryName() string { return r.Category }

func (r EventRecord) SearchText() string {
	return strings.ToLower(r.Title + " " + r.Description + " " + r.Category)
}

// SearchHit is one result from a text-search provider.
type SearchHit struct {
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url"`
	Snippet   string    `json:"snippet,omitempty"`
	Source    string    `json:"source"`
	Retrieved time.Time `json:"retrieved"`
}

// IdentityKey is the hit's URL with the scheme, "www." prefix and trailing
// slash stripped, so http/https and cosmetic variants collapse.
func (r SearchHit) IdentityKey() string {
	u, err := url.Parse(strings.TrimSpace(r.URL))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(r.URL))
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.Path, "/")
	key := host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

func (r SearchHit) SourceName() string { return r.Source }

func (r SearchHit) Confidence() float64 { return 0 }

func (r SearchHit) SearchText() string {
	return strings.ToLower(r.Title + " " + r.Snippet)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
