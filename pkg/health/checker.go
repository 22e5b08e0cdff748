// Package health exposes liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/content"
)

// Status represents the health status of a service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTimeout bounds a check registered without a timeout.
const DefaultTimeout = 5 * time.Second

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status     Status `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Report is the aggregated status of every check.
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// Check defines a single health check.
type Check struct {
	Name    string
	Fn      func(ctx context.Context) error
	Timeout time.Duration

	// Critical failures make the whole report unhealthy; others degrade it.
	Critical bool
}

// Checker runs the registered checks.
type Checker struct {
	checks  []Check
	version string
	mu      sync.RWMutex
}

// NewChecker creates a checker reporting version.
func NewChecker(version string) *Checker {
	return &Checker{version: version}
}

// AddCheck adds a non-critical check.
func (hc *Checker) AddCheck(name string, fn func(context.Context) error, timeout time.Duration) {
	hc.add(Check{Name: name, Fn: fn, Timeout: timeout})
}

// AddCriticalCheck adds a check whose failure makes the service unhealthy.
func (hc *Checker) AddCriticalCheck(name string, fn func(context.Context) error, timeout time.Duration) {
	hc.add(Check{Name: name, Fn: fn, Timeout: timeout, Critical: true})
}

func (hc *Checker) add(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, c)
}

// Check runs all checks concurrently and aggregates the results.
func (hc *Checker) Check(ctx context.Context) Report {
	hc.mu.RLock()
	checks := make([]Check, len(hc.checks))
	copy(checks, hc.checks)
	hc.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now(),
		Version:   hc.version,
	}

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup

	for i, c := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()

			start := time.Now()
			checkCtx, cancel := context.WithTimeout(ctx, c.Timeout)
			defer cancel()

			err := c.Fn(checkCtx)

			res := CheckResult{
				Status:     StatusHealthy,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
			}
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	for i, c := range checks {
		res := results[i]
		report.Checks[c.Name] = res

		if res.Status != StatusHealthy {
			if c.Critical {
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}

	return report
}

// LivenessHandler returns 200 while the process is running.
func (hc *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	})
}

// ReadinessHandler returns 200 unless a critical check fails, 503 otherwise.
func (hc *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := hc.Check(r.Context())

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// ContentSourceCheck fetches and decodes the content document. An empty
// cards array is healthy.
func ContentSourceCheck(src content.Source) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := src.Fetch(ctx); err != nil {
			return fmt.Errorf("%s: %w", src.Location(), err)
		}
		return nil
	}
}

// SessionCapacityCheck fails once count reaches max. A max of zero disables
// the limit.
func SessionCapacityCheck(count func() int, max int) func(context.Context) error {
	return func(ctx context.Context) error {
		if max <= 0 {
			return nil
		}
		if n := count(); n >= max {
			return fmt.Errorf("live sessions at capacity (%d/%d)", n, max)
		}
		return nil
	}
}
