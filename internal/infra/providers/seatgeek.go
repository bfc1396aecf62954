package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// SeatGeek queries the SeatGeek events API near a coordinate.
type SeatGeek struct {
	client   *resty.Client
	baseURL  string
	clientID string
}

func NewSeatGeek(client *resty.Client, clientID string) *SeatGeek {
	return &SeatGeek{client: client, baseURL: "https://api.seatgeek.com/2", clientID: clientID}
}

func (p *SeatGeek) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "seatgeek",
		Capabilities: []domain.Capability{domain.CapabilityEvent},
		CallTimeout:  8 * time.Second,
		Rate:         domain.RatePolicy{Calls: 60, Window: time.Minute},
		Weight:       0.80,
	}
}

func (p *SeatGeek) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	if q.Coord == nil {
		return nil, errors.New("seatgeek: query has no coordinates")
	}
	params := map[string]string{
		"client_id": p.clientID,
		"lat":       strconv.FormatFloat(q.Coord.Latitude, 'f', 4, 64),
		"lon":       strconv.FormatFloat(q.Coord.Longitude, 'f', 4, 64),
		"per_page":  "50",
	}
	if q.RadiusKm > 0 {
		params["range"] = fmt.Sprintf("%dkm", int(q.RadiusKm))
	}
	if len(q.Terms) > 0 {
		params["q"] = strings.Join(q.Terms, " ")
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(p.baseURL + "/events")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("seatgeek: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (p *SeatGeek) Normalize(payload []byte) ([]domain.EventRecord, error) {
	var body struct {
		Events []struct {
			ID          int64  `json:"id"`
			Title       string `json:"title"`
			DatetimeUTC string `json:"datetime_utc"`
			URL         string `json:"url"`
			Venue       struct {
				Name     string `json:"name"`
				Location struct {
					Lat *float64 `json:"lat"`
					Lon *float64 `json:"lon"`
				} `json:"location"`
			} `json:"venue"`
			Taxonomies []struct {
				Name string `json:"name"`
			} `json:"taxonomies"`
			Stats struct {
				LowestPrice *float64 `json:"lowest_price"`
			} `json:"stats"`
		} `json:"events"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("seatgeek: %w", err)
	}

	records := make([]domain.EventRecord, 0, len(body.Events))
	for _, ev := range body.Events {
		rec := domain.EventRecord{
			ID:     fmt.Sprintf("seatgeek-%d", ev.ID),
			Title:  ev.Title,
			Venue:  ev.Venue.Name,
			URL:    ev.URL,
			Source: "seatgeek",
		}
		if ev.DatetimeUTC != "" {
			if t, err := time.Parse("2006-01-02T15:04:05", ev.DatetimeUTC); err == nil {
				t = t.UTC()
				rec.Start = &t
			}
		}
		if len(ev.Taxonomies) > 0 {
			rec.Category = ev.Taxonomies[0].Name
		}
		if ev.Stats.LowestPrice != nil && *ev.Stats.LowestPrice == 0 {
			rec.IsFree = true
		}
		if ev.Venue.Location.Lat != nil && ev.Venue.Location.Lon != nil {
			rec.Latitude = ev.Venue.Location.Lat
			rec.Longitude = ev.Venue.Location.Lon
		}
		records = append(records, rec)
	}
	return records, nil
}
