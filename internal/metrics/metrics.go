// Package metrics keeps in-process request and resolution counters.
package metrics

import (
	"fmt"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// RoutePath is where the snapshot is served.
const RoutePath = "/metrics/requests"

// Metrics holds all counters. Safe for concurrent use.
type Metrics struct {
	totalRequests  atomic.Int64
	activeRequests atomic.Int64
	totalErrors    atomic.Int64
	totalLatencyMs atomic.Int64
	maxLatencyMs   atomic.Int64
	startTime      time.Time

	mu                sync.Mutex
	endpointCounts    map[string]int64
	endpointLatencies map[string]int64 // total ms per endpoint
	statusCodes       map[int]int64
	resolutions       map[string]map[string]int64 // provider -> outcome -> count
	resolutionMs      map[string]int64
}

func New() *Metrics {
	return &Metrics{
		startTime:         time.Now(),
		endpointCounts:    make(map[string]int64),
		endpointLatencies: make(map[string]int64),
		statusCodes:       make(map[int]int64),
		resolutions:       make(map[string]map[string]int64),
		resolutionMs:      make(map[string]int64),
	}
}

// Middleware tracks request count, latency, in-flight requests and errors.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.activeRequests.Add(1)
			start := time.Now()

			err := next(c)

			latencyMs := time.Since(start).Milliseconds()
			m.activeRequests.Add(-1)
			m.totalRequests.Add(1)
			m.totalLatencyMs.Add(latencyMs)

			for {
				current := m.maxLatencyMs.Load()
				if latencyMs <= current || m.maxLatencyMs.CompareAndSwap(current, latencyMs) {
					break
				}
			}

			statusCode := responseStatus(c, err)
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			endpoint := fmt.Sprintf("%s %s", c.Request().Method, path)

			if statusCode >= http.StatusBadRequest {
				m.totalErrors.Add(1)
			}

			m.mu.Lock()
			m.endpointCounts[endpoint]++
			m.endpointLatencies[endpoint] += latencyMs
			m.statusCodes[statusCode]++
			m.mu.Unlock()

			return err
		}
	}
}

func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}

// RecordResolution counts one provider invocation.
func (m *Metrics) RecordResolution(provider, outcome string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes, ok := m.resolutions[provider]
	if !ok {
		outcomes = make(map[string]int64)
		m.resolutions[provider] = outcomes
	}
	outcomes[outcome]++
	m.resolutionMs[provider] += elapsed.Milliseconds()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalRequests  int64                       `json:"total_requests"`
	ActiveRequests int64                       `json:"active_requests"`
	TotalErrors    int64                       `json:"total_errors"`
	ErrorRate      float64                     `json:"error_rate_pct"`
	AvgLatencyMs   float64                     `json:"avg_latency_ms"`
	MaxLatencyMs   int64                       `json:"max_latency_ms"`
	RequestsPerSec float64                     `json:"requests_per_sec"`
	UptimeSeconds  float64                     `json:"uptime_seconds"`
	EndpointCounts map[string]int64            `json:"endpoint_counts"`
	EndpointAvgMs  map[string]int64            `json:"endpoint_avg_latency_ms"`
	StatusCodes    map[int]int64               `json:"status_codes"`
	Resolutions    map[string]map[string]int64 `json:"resolutions"`
	ResolutionMs   map[string]int64            `json:"resolution_latency_ms"`
}

func (m *Metrics) Snapshot() Snapshot {
	total := m.totalRequests.Load()
	errs := m.totalErrors.Load()
	uptime := time.Since(m.startTime).Seconds()

	s := Snapshot{
		TotalRequests:  total,
		ActiveRequests: m.activeRequests.Load(),
		TotalErrors:    errs,
		MaxLatencyMs:   m.maxLatencyMs.Load(),
		UptimeSeconds:  uptime,
	}
	if total > 0 {
		s.AvgLatencyMs = float64(m.totalLatencyMs.Load()) / float64(total)
		s.ErrorRate = float64(errs) / float64(total) * 100
	}
	if uptime > 0 {
		s.RequestsPerSec = float64(total) / uptime
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s.EndpointCounts = maps.Clone(m.endpointCounts)
	s.EndpointAvgMs = make(map[string]int64, len(m.endpointLatencies))
	for k, v := range m.endpointCounts {
		if v > 0 {
			s.EndpointAvgMs[k] = m.endpointLatencies[k] / v
		}
	}
	s.StatusCodes = maps.Clone(m.statusCodes)
	s.Resolutions = make(map[string]map[string]int64, len(m.resolutions))
	for provider, outcomes := range m.resolutions {
		s.Resolutions[provider] = maps.Clone(outcomes)
	}
	s.ResolutionMs = maps.Clone(m.resolutionMs)

	return s
}

// RegisterRoute adds the snapshot endpoint.
func (m *Metrics) RegisterRoute(e *echo.Echo) {
	e.GET(RoutePath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, m.Snapshot())
	})
}
