package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// FreeGeoIP is the keyless fallback IP locator. Less accurate than the
// others, which its fixed accuracy reflects.
type FreeGeoIP struct {
	client  *resty.Client
	baseURL string
}

func NewFreeGeoIP(client *resty.Client) *FreeGeoIP {
	return &FreeGeoIP{client: client, baseURL: "https://freegeoip.app/json"}
}

func (p *FreeGeoIP) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "freegeoip",
		Capabilities: []domain.Capability{domain.CapabilityLocation},
		CallTimeout:  5 * time.Second,
		Rate:         domain.RatePolicy{Calls: 60, Window: time.Minute},
		Weight:       0.65,
	}
}

func (p *FreeGeoIP) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	if q.IP == "" {
		return nil, errors.New("freegeoip: query has no ip")
	}
	resp, err := p.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/%s", p.baseURL, q.IP))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("freegeoip: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (p *FreeGeoIP) Normalize(payload []byte) ([]domain.LocationRecord, error) {
	var body struct {
		Country  string   `json:"country_name"`
		Code     string   `json:"country_code"`
		Region   string   `json:"region_name"`
		City     string   `json:"city"`
		Zip      string   `json:"zip_code"`
		Lat      *float64 `json:"latitude"`
		Lon      *float64 `json:"longitude"`
		TimeZone string   `json:"time_zone"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("freegeoip: %w", err)
	}
	if body.Lat == nil || body.Lon == nil {
		return nil, errors.New("freegeoip: response missing coordinates")
	}
	return []domain.LocationRecord{{
		Latitude:    body.Lat,
		Longitude:   body.Lon,
		City:        body.City,
		Region:      body.Region,
		Country:     body.Country,
		CountryCode: body.Code,
		PostalCode:  body.Zip,
		Timezone:    body.TimeZone,
		Accuracy:    0.65,
		Source:      "freegeoip",
	}}, nil
}
