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

// Nominatim resolves textual addresses (forward geocoding) and bare
// coordinates (reverse geocoding) through OpenStreetMap. It serves location
// queries that carry terms or coordinates instead of an IP; for pure IP
// queries it declines, which the executor treats as an ordinary provider
// error.
type Nominatim struct {
	client  *resty.Client
	baseURL string
}

func NewNominatim(client *resty.Client) *Nominatim {
	return &Nominatim{client: client, baseURL: "https://nominatim.openstreetmap.org"}
}

func (p *Nominatim) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "nominatim",
		Capabilities: []domain.Capability{domain.CapabilityLocation},
		CallTimeout:  8 * time.Second,
		// Nominatim's usage policy asks for at most one request per second.
		Rate:   domain.RatePolicy{Calls: 1, Window: time.Second},
		Weight: 0.80,
	}
}

func (p *Nominatim) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	switch {
	case len(q.Terms) > 0:
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"q":              strings.Join(q.Terms, " "),
				"format":         "json",
				"limit":          "1",
				"addressdetails": "1",
			}).
			Get(p.baseURL + "/search")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("nominatim: status %d", resp.StatusCode())
		}
		return resp.Body(), nil
	case q.Coord != nil:
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"lat":            strconv.FormatFloat(q.Coord.Latitude, 'f', 6, 64),
				"lon":            strconv.FormatFloat(q.Coord.Longitude, 'f', 6, 64),
				"format":         "json",
				"addressdetails": "1",
			}).
			Get(p.baseURL + "/reverse")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("nominatim: status %d", resp.StatusCode())
		}
		// Wrap so Normalize sees the same list shape as /search.
		return append(append([]byte("["), resp.Body()...), ']'), nil
	default:
		return nil, errors.New("nominatim: query has neither terms nor coordinates")
	}
}

type nominatimPlace struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Suburb   string `json:"suburb"`
		State    string `json:"state"`
		County   string `json:"county"`
		Country  string `json:"country"`
		Code     string `json:"country_code"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

func (p *Nominatim) Normalize(payload []byte) ([]domain.LocationRecord, error) {
	var places []nominatimPlace
	if err := json.Unmarshal(payload, &places); err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	if len(places) == 0 {
		return nil, errors.New("nominatim: no match")
	}
	place := places[0]

	lat, latErr := strconv.ParseFloat(place.Lat, 64)
	lon, lonErr := strconv.ParseFloat(place.Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, errors.New("nominatim: response missing coordinates")
	}

	city := place.Address.City
	for _, alt := range []string{place.Address.Town, place.Address.Village, place.Address.Suburb} {
		if city != "" {
			break
		}
		city = alt
	}
	region := place.Address.State
	if region == "" {
		region = place.Address.County
	}

	return []domain.LocationRecord{{
		Latitude:    &lat,
		Longitude:   &lon,
		City:        city,
		Region:      region,
		Country:     place.Address.Country,
		CountryCode: strings.ToUpper(place.Address.Code),
		PostalCode:  place.Address.Postcode,
		Accuracy:    0.80,
		Source:      "nominatim",
	}}, nil
}
