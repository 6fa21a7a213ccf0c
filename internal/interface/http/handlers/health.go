// Package handlers contains HTTP handler interfaces and implementations.
package handlers

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker reports whether the engine and its backing stores are usable.
type HealthChecker interface {
	// Check runs every registered probe and returns the aggregate status.
	Check(ctx context.Context) HealthStatus

	// AddCheck registers a probe under a name; re-registering replaces it.
	AddCheck(name string, check HealthCheckFunc)

	// RemoveCheck unregisters a named probe.
	RemoveCheck(name string)
}

// HealthCheckFunc is a single dependency probe. A nil return means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregate picture exposed on /health and /ready.
type HealthStatus struct {
	// Healthy is true when every probe passed.
	Healthy bool `json:"healthy"`

	// Ready mirrors Healthy: an engine with a failing store cannot
	// serve completions and should be rotated out of the pool.
	Ready bool `json:"ready"`

	// Message summarizes the outcome, naming failed probes if any.
	Message string `json:"message,omitempty"`

	// Checks holds the per-probe results keyed by probe name.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Uptime is how long this process has been running.
	Uptime string `json:"uptime,omitempty"`

	// Timestamp is when the probes ran, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Version is the engine build version.
	Version string `json:"version,omitempty"`
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Healthy bool `json:"healthy"`

	// Message is "OK" or the probe's error text.
	Message string `json:"message,omitempty"`

	// Duration is how long the probe took.
	Duration string `json:"duration,omitempty"`

	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// CompositeHealthChecker fans registered probes out in parallel and merges
// their results. All probes share a per-probe timeout so one hung dependency
// cannot stall the whole endpoint.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheckFunc
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a checker with a 5s per-probe timeout.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]HealthCheckFunc),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout overrides the per-probe timeout.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// AddCheck registers a probe under a name.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RemoveCheck unregisters a named probe.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check runs every probe concurrently and returns the merged status.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]HealthCheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		status.Message = "no probes registered"
		return status
	}

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		failing []string
	)

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := check(probeCtx)

			result := CheckResult{
				Healthy:     err == nil,
				Message:     "OK",
				Duration:    time.Since(start).Round(time.Millisecond).String(),
				LastChecked: time.Now().UTC(),
			}
			if err != nil {
				result.Message = err.Error()
			}

			resMu.Lock()
			status.Checks[name] = result
			if err != nil {
				failing = append(failing, name)
			}
			resMu.Unlock()
		}(name, check)
	}
	wg.Wait()

	if len(failing) > 0 {
		status.Healthy = false
		status.Ready = false
		status.Message = "failing: " + strings.Join(failing, ", ")
	} else {
		status.Message = "all probes passed"
	}

	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED PROBES
// ══════════════════════════════════════════════════════════════════════════════

// DatabaseChecker is the slice of the Postgres connection health probes need.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the progression store.
func NewDatabaseCheck(db DatabaseChecker) HealthCheckFunc {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// CacheChecker is the slice of the Redis cache health probes need.
type CacheChecker interface {
	Ping(ctx context.Context) error
}

// NewCacheCheck probes the catalog/profile cache.
func NewCacheCheck(cache CacheChecker) HealthCheckFunc {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOOP IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NoopHealthChecker reports healthy unconditionally. Used when the server is
// constructed without real dependencies, e.g. in handler tests.
type NoopHealthChecker struct {
	startTime time.Time
}

// NewNoopHealthChecker creates a new noop health checker.
func NewNoopHealthChecker() *NoopHealthChecker {
	return &NoopHealthChecker{startTime: time.Now()}
}

// Check always reports healthy.
func (n *NoopHealthChecker) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Healthy:   true,
		Ready:     true,
		Message:   "OK",
		Uptime:    time.Since(n.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// AddCheck is a no-op.
func (n *NoopHealthChecker) AddCheck(name string, check HealthCheckFunc) {}

// RemoveCheck is a no-op.
func (n *NoopHealthChecker) RemoveCheck(name string) {}
