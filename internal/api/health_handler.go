package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/optin-mailer/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the service.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded", "not_configured"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) ComponentCheck

type namedCheck struct {
	name     string
	critical bool
	fn       CheckFunc
}

// HealthChecker runs the registered dependency checks concurrently. A
// critical dependency being down makes the service unhealthy and not
// ready; anything else only degrades it.
type HealthChecker struct {
	checks    []namedCheck
	startTime time.Time
}

// NewHealthChecker registers Postgres as critical and Redis as optional.
// redisClient may be nil.
func NewHealthChecker(db *sql.DB, redisClient redis.Cmdable) *HealthChecker {
	hc := &HealthChecker{startTime: time.Now()}
	hc.Register("database", true, databaseCheck(db))
	hc.Register("redis", false, redisCheck(redisClient))
	return hc
}

// Register adds a named check. Not safe to call while serving.
func (hc *HealthChecker) Register(name string, critical bool, fn CheckFunc) {
	hc.checks = append(hc.checks, namedCheck{name: name, critical: critical, fn: fn})
}

const healthVersion = "1.0.0"

// HandleHealth always answers 200; the body carries the status.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.JSON(w, http.StatusOK, HealthStatus{
		Status:  hc.overallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness returns 200 while the process is up.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when the database is unreachable.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := hc.overallStatus(checks)

	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, len(hc.checks))
	for _, c := range hc.checks {
		go func(c namedCheck) { ch <- result{c.name, c.fn(ctx)} }(c)
	}

	checks := make(map[string]ComponentCheck, len(hc.checks))
	for range hc.checks {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func databaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) ComponentCheck {
		if db == nil {
			return ComponentCheck{Status: "down", Message: "not configured"}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		start := time.Now()
		err := db.PingContext(pingCtx)
		return latencyCheck(time.Since(start), err, time.Second)
	}
}

// redisCheck reports not_configured for a nil client: confirmation events
// are simply off in that case.
func redisCheck(client redis.Cmdable) CheckFunc {
	return func(ctx context.Context) ComponentCheck {
		if client == nil {
			return ComponentCheck{Status: "not_configured"}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		start := time.Now()
		err := client.Ping(pingCtx).Err()
		return latencyCheck(time.Since(start), err, 500*time.Millisecond)
	}
}

func latencyCheck(latency time.Duration, err error, slow time.Duration) ComponentCheck {
	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	if latency > slow {
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

func (hc *HealthChecker) overallStatus(checks map[string]ComponentCheck) string {
	status := "healthy"
	for _, c := range hc.checks {
		switch checks[c.name].Status {
		case "down":
			if c.critical {
				return "unhealthy"
			}
			status = "degraded"
		case "degraded":
			status = "degraded"
		}
	}
	return status
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
