// Package health serves liveness and readiness endpoints for the intake server.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status of a single check or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const defaultTimeout = 5 * time.Second

// CheckFunc reports a dependency failure as an error.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status     Status `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Report is the body of a readiness response.
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

type check struct {
	name     string
	fn       CheckFunc
	timeout  time.Duration
	critical bool
}

// Checker runs registered dependency checks concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  []check
	version string
}

// NewChecker creates a checker with no checks; it reports healthy.
func NewChecker(version string) *Checker {
	return &Checker{version: version}
}

// AddCheck registers a check whose failure only degrades the service.
func (hc *Checker) AddCheck(name string, fn CheckFunc, timeout time.Duration) {
	hc.add(check{name: name, fn: fn, timeout: timeout})
}

// AddCriticalCheck registers a check whose failure makes the service
// unready.
func (hc *Checker) AddCriticalCheck(name string, fn CheckFunc, timeout time.Duration) {
	hc.add(check{name: name, fn: fn, timeout: timeout, critical: true})
}

func (hc *Checker) add(c check) {
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, c)
}

// Names lists the registered checks in sorted order.
func (hc *Checker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for _, c := range hc.checks {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check and folds the results into a report.
func (hc *Checker) Check(ctx context.Context) Report {
	hc.mu.RLock()
	checks := append([]check(nil), hc.checks...)
	hc.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now().UTC(),
		Version:   hc.version,
	}

	type outcome struct {
		check
		result CheckResult
	}
	results := make(chan outcome, len(checks))

	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func(c check) {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := c.fn(cctx)
			res := CheckResult{Status: StatusHealthy, DurationMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
			}
			results <- outcome{check: c, result: res}
		}(c)
	}
	wg.Wait()
	close(results)

	for o := range results {
		report.Checks[o.name] = o.result
		if o.result.Status == StatusHealthy {
			continue
		}
		if o.critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

// LivenessHandler answers 200 while the process is serving.
func (hc *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// ReadinessHandler answers 503 when a critical check fails.
func (hc *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := hc.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}

// HTTPCheck reports whether url answers at all. Any HTTP response counts as
// reachable; only transport failures and 5xx statuses fail the check.
func HTTPCheck(client *http.Client, url string) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s answered %d", url, resp.StatusCode)
		}
		return nil
	}
}
