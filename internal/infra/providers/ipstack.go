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

// IPStack is the keyed ipstack.com lookup, the most accurate of the IP
// providers when a key is configured.
type IPStack struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewIPStack(client *resty.Client, apiKey string) *IPStack {
	return &IPStack{client: client, baseURL: "http://api.ipstack.com", apiKey: apiKey}
}

func (p *IPStack) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "ipstack",
		Capabilities: []domain.Capability{domain.CapabilityLocation},
		CallTimeout:  5 * time.Second,
		Rate:         domain.RatePolicy{Calls: 100, Window: time.Hour},
		Weight:       0.85,
	}
}

func (p *IPStack) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	if q.IP == "" {
		return nil, errors.New("ipstack: query has no ip")
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_key": p.apiKey,
			"fields":     "country_name,country_code,region_name,zip,city,latitude,longitude,time_zone",
		}).
		Get(fmt.Sprintf("%s/%s", p.baseURL, q.IP))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ipstack: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (p *IPStack) Normalize(payload []byte) ([]domain.LocationRecord, error) {
	var body struct {
		Success *bool `json:"success"`
		Error   struct {
			Info string `json:"info"`
		} `json:"error"`
		Country  string          `json:"country_name"`
		Code     string          `json:"country_code"`
		Region   string          `json:"region_name"`
		City     string          `json:"city"`
		Zip      string          `json:"zip"`
		Lat      *float64        `json:"latitude"`
		Lon      *float64        `json:"longitude"`
		TimeZone json.RawMessage `json:"time_zone"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("ipstack: %w", err)
	}
	if body.Success != nil && !*body.Success {
		return nil, fmt.Errorf("ipstack: lookup failed: %s", body.Error.Info)
	}
	if body.Lat == nil || body.Lon == nil {
		return nil, errors.New("ipstack: response missing coordinates")
	}
	return []domain.LocationRecord{{
		Latitude:    body.Lat,
		Longitude:   body.Lon,
		City:        body.City,
		Region:      body.Region,
		Country:     body.Country,
		CountryCode: body.Code,
		PostalCode:  body.Zip,
		Timezone:    timezoneID(body.TimeZone),
		Accuracy:    0.85,
		Source:      "ipstack",
	}}, nil
}

// timezoneID handles ipstack returning time_zone either as an object with an
// id field or as a bare string.
func timezoneID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != "" {
		return obj.ID
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
