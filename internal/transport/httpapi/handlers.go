// Package httpapi exposes the aggregation engines over HTTP.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/config"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/engine"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/transport/taskqueue"
)

// Server holds API dependencies.
type Server struct {
	Location *engine.Engine[domain.LocationRecord]
	Events   *engine.Engine[domain.EventRecord]
	Search   *engine.Engine[domain.SearchHit]

	Governor    *engine.Governor
	Descriptors []domain.Descriptor
	Budgets     config.BudgetConfig
	// AsynqClient enqueues cache-warmup tasks; nil when redis is disabled.
	AsynqClient *asynq.Client

	log zerolog.Logger
}

func NewServer(
	location *engine.Engine[domain.LocationRecord],
	events *engine.Engine[domain.EventRecord],
	search *engine.Engine[domain.SearchHit],
	gov *engine.Governor,
	descriptors []domain.Descriptor,
	budgets config.BudgetConfig,
	asynqClient *asynq.Client,
	log zerolog.Logger,
) *Server {
	return &Server{
		Location:    location,
		Events:      events,
		Search:      search,
		Governor:    gov,
		Descriptors: descriptors,
		Budgets:     budgets,
		AsynqClient: asynqClient,
		log:         log.With().Str("component", "httpapi").Logger(),
	}
}

// SetupRoutes configures all API routes.
func (s *Server) SetupRoutes(r *gin.Engine) {
	r.Use(requestID())
	r.GET("/healthz", s.Health)
	r.GET("/location", s.GetLocation)
	r.GET("/events", s.GetEvents)
	r.GET("/search", s.GetSearch)
	r.GET("/ratelimits", s.GetRateLimits)
	r.POST("/warmup", s.EnqueueWarmup)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", uuid.NewString())
		c.Next()
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetLocation resolves where the caller (or the given IP) is. With lat/lon
// params it reverse-geocodes instead; with q= it forward-geocodes.
func (s *Server) GetLocation(c *gin.Context) {
	q := domain.Query{
		Need:     domain.CapabilityLocation,
		Limit:    1,
		Deadline: time.Now().Add(s.Budgets.Location),
	}
	if terms := c.Query("q"); terms != "" {
		q.Terms = strings.Fields(terms)
	} else if coord, ok := parseCoord(c); ok {
		q.Coord = coord
	} else {
		ip := c.Query("ip")
		if ip == "" {
			ip = c.ClientIP()
		}
		q.IP = ip
	}

	res, err := s.Location.Aggregate(c.Request.Context(), q)
	if err != nil {
		s.log.Error().Err(err).Msg("location aggregation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetEvents returns ranked nearby events. Accepts lat/lon directly, or a
// textual location= that is first resolved through the location engine.
func (s *Server) GetEvents(c *gin.Context) {
	deadline := time.Now().Add(s.Budgets.Event)

	coord, ok := parseCoord(c)
	if !ok {
		place := c.Query("location")
		if place == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat/lon or location required"})
			return
		}
		locQ := domain.Query{
			Need:     domain.CapabilityLocation,
			Terms:    strings.Fields(place),
			Limit:    1,
			Deadline: deadline,
		}
		locRes, err := s.Location.Aggregate(c.Request.Context(), locQ)
		if err != nil || len(locRes.Records) == 0 {
			c.JSON(http.StatusOK, gin.H{"error": "location not resolved", "meta": locRes.Meta})
			return
		}
		rec := locRes.Records[0].Record
		lat, lon, hasCoords := rec.Coords()
		if !hasCoords {
			c.JSON(http.StatusOK, gin.H{"error": "location not resolved", "meta": locRes.Meta})
			return
		}
		coord = &domain.Coordinates{Latitude: lat, Longitude: lon}
	}

	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "40"), 64)
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "168"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	now := time.Now()

	q := domain.Query{
		Need:     domain.CapabilityEvent,
		Terms:    splitTerms(c.Query("q")),
		Coord:    coord,
		RadiusKm: radius,
		Window:   domain.TimeWindow{Start: now, End: now.Add(time.Duration(hours) * time.Hour)},
		Limit:    limit,
		Deadline: deadline,
	}

	res, err := s.Events.Aggregate(c.Request.Context(), q)
	if err != nil {
		s.log.Error().Err(err).Msg("event aggregation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) GetSearch(c *gin.Context) {
	terms := splitTerms(c.Query("q"))
	if len(terms) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	q := domain.Query{
		Need:     domain.CapabilitySearch,
		Terms:    terms,
		Limit:    limit,
		Deadline: time.Now().Add(s.Budgets.Search),
	}
	res, err := s.Search.Aggregate(c.Request.Context(), q)
	if err != nil {
		s.log.Error().Err(err).Msg("search aggregation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRateLimits reports the current budget of every registered provider.
func (s *Server) GetRateLimits(c *gin.Context) {
	now := time.Now()
	out := make(map[string]engine.RateStatus, len(s.Descriptors))
	for _, desc := range s.Descriptors {
		out[desc.Name] = s.Governor.Status(desc, now)
	}
	c.JSON(http.StatusOK, out)
}

// EnqueueWarmup schedules a background aggregation so a later identical query
// hits the cache.
func (s *Server) EnqueueWarmup(c *gin.Context) {
	if s.AsynqClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue disabled"})
		return
	}
	var payload taskqueue.WarmupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	task, err := taskqueue.NewWarmupTask(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	info, err := s.AsynqClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue warmup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID})
}

func parseCoord(c *gin.Context) (*domain.Coordinates, bool) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return nil, false
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, false
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, true
}

func splitTerms(s string) []string {
	if s == "" {
		return nil
	}
	var terms []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}
