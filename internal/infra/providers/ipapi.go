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

// IPAPI resolves IP addresses through the free ip-api.com endpoint. No key
// required, but the free tier is capped at 45 calls per minute.
type IPAPI struct {
	client  *resty.Client
	baseURL string
}

func NewIPAPI(client *resty.Client) *IPAPI {
	return &IPAPI{client: client, baseURL: "http://ip-api.com/json"}
}

func (p *IPAPI) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "ip-api",
		Capabilities: []domain.Capability{domain.CapabilityLocation},
		CallTimeout:  5 * time.Second,
		Rate:         domain.RatePolicy{Calls: 45, Window: time.Minute},
		Weight:       0.75,
	}
}

func (p *IPAPI) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	if q.IP == "" {
		return nil, errors.New("ip-api: query has no ip")
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "status,message,country,countryCode,regionName,city,zip,lat,lon,timezone").
		Get(fmt.Sprintf("%s/%s", p.baseURL, q.IP))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ip-api: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (p *IPAPI) Normalize(payload []byte) ([]domain.LocationRecord, error) {
	var body struct {
		Status     string   `json:"status"`
		Message    string   `json:"message"`
		Country    string   `json:"country"`
		Code       string   `json:"countryCode"`
		RegionName string   `json:"regionName"`
		City       string   `json:"city"`
		Zip        string   `json:"zip"`
		Lat        *float64 `json:"lat"`
		Lon        *float64 `json:"lon"`
		Timezone   string   `json:"timezone"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("ip-api: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("ip-api: lookup failed: %s", body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return nil, errors.New("ip-api: response missing coordinates")
	}
	return []domain.LocationRecord{{
		Latitude:    body.Lat,
		Longitude:   body.Lon,
		City:        body.City,
		Region:      body.RegionName,
		Country:     body.Country,
		CountryCode: body.Code,
		PostalCode:  body.Zip,
		Timezone:    body.Timezone,
		Accuracy:    0.75,
		Source:      "ip-api",
	}}, nil
}
