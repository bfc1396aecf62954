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
	"github.com/google/uuid"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// Ticketmaster queries the Discovery API for events near a coordinate.
type Ticketmaster struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewTicketmaster(client *resty.Client, apiKey string) *Ticketmaster {
	return &Ticketmaster{
		client:  client,
		baseURL: "https://app.ticketmaster.com/discovery/v2",
		apiKey:  apiKey,
	}
}

func (p *Ticketmaster) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "ticketmaster",
		Capabilities: []domain.Capability{domain.CapabilityEvent},
		CallTimeout:  8 * time.Second,
		Rate:         domain.RatePolicy{Calls: 5, Window: time.Second},
		Weight:       0.90,
	}
}

func (p *Ticketmaster) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	if q.Coord == nil {
		return nil, errors.New("ticketmaster: query has no coordinates")
	}
	params := map[string]string{
		"apikey":  p.apiKey,
		"latlong": fmt.Sprintf("%.4f,%.4f", q.Coord.Latitude, q.Coord.Longitude),
		"unit":    "km",
		"sort":    "date,asc",
		"size":    "50",
	}
	if q.RadiusKm > 0 {
		params["radius"] = strconv.Itoa(int(q.RadiusKm))
	}
	if len(q.Terms) > 0 {
		params["keyword"] = strings.Join(q.Terms, " ")
	}
	if !q.Window.IsZero() {
		params["startDateTime"] = q.Window.Start.UTC().Format("2006-01-02T15:04:05Z")
		params["endDateTime"] = q.Window.End.UTC().Format("2006-01-02T15:04:05Z")
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(p.baseURL + "/events.json")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ticketmaster: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (p *Ticketmaster) Normalize(payload []byte) ([]domain.EventRecord, error) {
	var body struct {
		Embedded struct {
			Events []struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Info  string `json:"info"`
				URL   string `json:"url"`
				Dates struct {
					Start struct {
						DateTime string `json:"dateTime"`
					} `json:"start"`
				} `json:"dates"`
				Classifications []struct {
					Segment struct {
						Name string `json:"name"`
					} `json:"segment"`
				} `json:"classifications"`
				PriceRanges []struct {
					Min float64 `json:"min"`
				} `json:"priceRanges"`
				Embedded struct {
					Venues []struct {
						Name     string `json:"name"`
						Location struct {
							Latitude  string `json:"latitude"`
							Longitude string `json:"longitude"`
						} `json:"location"`
					} `json:"venues"`
				} `json:"_embedded"`
			} `json:"events"`
		} `json:"_embedded"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("ticketmaster: %w", err)
	}

	records := make([]domain.EventRecord, 0, len(body.Embedded.Events))
	for _, ev := range body.Embedded.Events {
		rec := domain.EventRecord{
			ID:          ev.ID,
			Title:       ev.Name,
			Description: ev.Info,
			URL:         ev.URL,
			Source:      "ticketmaster",
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if ev.Dates.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, ev.Dates.Start.DateTime); err == nil {
				rec.Start = &t
			}
		}
		if len(ev.Classifications) > 0 {
			rec.Category = ev.Classifications[0].Segment.Name
		}
		if len(ev.PriceRanges) > 0 && ev.PriceRanges[0].Min == 0 {
			rec.IsFree = true
		}
		if len(ev.Embedded.Venues) > 0 {
			venue := ev.Embedded.Venues[0]
			rec.Venue = venue.Name
			lat, latErr := strconv.ParseFloat(venue.Location.Latitude, 64)
			lon, lonErr := strconv.ParseFloat(venue.Location.Longitude, 64)
			if latErr == nil && lonErr == nil {
				rec.Latitude = &lat
				rec.Longitude = &lon
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
