package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/config"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/engine"
)

type stubProvider[R domain.Record] struct {
	desc    domain.Descriptor
	records []R
}

func (s *stubProvider[R]) Descriptor() domain.Descriptor { return s.desc }

func (s *stubProvider[R]) Fetch(_ context.Context, _ domain.Query) ([]byte, error) {
	return []byte("{}"), nil
}

func (s *stubProvider[R]) Normalize(_ []byte) ([]R, error) { return s.records, nil }

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lat, lon := 40.7128, -74.0060
	locReg := domain.NewRegistry[domain.LocationRecord]()
	if err := locReg.Register(&stubProvider[domain.LocationRecord]{
		desc: domain.Descriptor{
			Name:         "stub-geo",
			Capabilities: []domain.Capability{domain.CapabilityLocation},
			CallTimeout:  time.Second,
			Weight:       0.8,
		},
		records: []domain.LocationRecord{{
			Latitude: &lat, Longitude: &lon,
			City: "New York", Country: "United States", CountryCode: "US",
			Accuracy: 0.8, Source: "stub-geo",
		}},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	start := time.Now().Add(24 * time.Hour)
	evtReg := domain.NewRegistry[domain.EventRecord]()
	if err := evtReg.Register(&stubProvider[domain.EventRecord]{
		desc: domain.Descriptor{
			Name:         "stub-events",
			Capabilities: []domain.Capability{domain.CapabilityEvent},
			CallTimeout:  time.Second,
			Weight:       0.9,
		},
		records: []domain.EventRecord{{
			ID: "e1", Title: "Jazz Night", Start: &start,
			Latitude: &lat, Longitude: &lon, Source: "stub-events",
		}},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	searchReg := domain.NewRegistry[domain.SearchHit]()
	if err := searchReg.Register(&stubProvider[domain.SearchHit]{
		desc: domain.Descriptor{
			Name:         "stub-search",
			Capabilities: []domain.Capability{domain.CapabilitySearch},
			CallTimeout:  time.Second,
			Weight:       0.7,
		},
		records: []domain.SearchHit{{
			Title: "Jazz clubs", URL: "https://example.com/jazz", Source: "stub-search",
		}},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	gov := engine.NewGovernor()
	log := zerolog.Nop()
	srv := NewServer(
		engine.New(locReg, gov, nil, engine.NewLocationConsensus(), time.Hour, log),
		engine.New(evtReg, gov, nil, engine.NewRelevanceRanker[domain.EventRecord](), time.Hour, log),
		engine.New(searchReg, gov, nil, engine.NewRelevanceRanker[domain.SearchHit](), time.Hour, log),
		gov,
		append(locReg.Descriptors(), append(evtReg.Descriptors(), searchReg.Descriptors()...)...),
		config.BudgetConfig{Location: time.Second, Event: time.Second, Search: time.Second},
		nil,
		log,
	)

	r := gin.New()
	srv.SetupRoutes(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("every response must carry a request id")
	}
}

func TestGetLocationByIP(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/location?ip=8.8.8.8")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res domain.RankedResult[domain.LocationRecord]
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Record.City != "New York" {
		t.Errorf("unexpected result: %+v", res.Records)
	}
	if res.Meta.Attempted != 1 || res.Meta.Succeeded != 1 {
		t.Errorf("meta = %+v", res.Meta)
	}
}

func TestGetEventsRequiresPosition(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/events")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetEventsByCoordinates(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/events?lat=40.7128&lon=-74.0060&q=jazz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res domain.RankedResult[domain.EventRecord]
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Record.Title != "Jazz Night" {
		t.Errorf("unexpected result: %+v", res.Records)
	}
}

func TestGetEventsResolvesTextualLocation(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/events?location=new+york")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Jazz Night") {
		t.Errorf("textual location must resolve and return events, body = %s", w.Body.String())
	}
}

func TestGetEventsRejectsBadCoordinates(t *testing.T) {
	// Out-of-range latitude falls through to the textual path, which is
	// absent, so the request is rejected.
	w := doRequest(t, testRouter(t), http.MethodGet, "/events?lat=123.0&lon=-74.0")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetSearchRequiresQuery(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/search")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetSearch(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/search?q=jazz,clubs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res domain.RankedResult[domain.SearchHit]
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Record.URL != "https://example.com/jazz" {
		t.Errorf("unexpected result: %+v", res.Records)
	}
}

func TestGetRateLimits(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodGet, "/ratelimits")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]engine.RateStatus
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, name := range []string{"stub-geo", "stub-events", "stub-search"} {
		if _, ok := out[name]; !ok {
			t.Errorf("missing rate status for %s", name)
		}
	}
}

func TestEnqueueWarmupWithoutQueue(t *testing.T) {
	w := doRequest(t, testRouter(t), http.MethodPost, "/warmup")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when the queue is disabled", w.Code)
	}
}
