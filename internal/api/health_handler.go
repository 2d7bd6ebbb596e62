package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/profilebot/internal/monitoring"
	"github.com/ignite/profilebot/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the bot.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded", "disabled"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatsSource reports the bot's counters.
type StatsSource interface {
	Snapshot() monitoring.Snapshot
}

// HealthChecker checks the lookup database, Redis and the poll loop.
// The database and Redis are optional; nil means "disabled".
type HealthChecker struct {
	db          *sql.DB
	redisClient *redis.Client
	stats       StatsSource
	staleAfter  time.Duration
	startTime   time.Time
	now         func() time.Time
}

// NewHealthChecker creates a checker. The loop is reported degraded when no
// cycle has finished within staleAfter.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, stats StatsSource, staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		db:          db,
		redisClient: redisClient,
		stats:       stats,
		staleAfter:  staleAfter,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// HandleHealth returns every check. It answers 503 only when unhealthy.
//
//	GET /healthz
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	code := http.StatusOK
	if overall == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, HealthStatus{
		Status: overall,
		Uptime: formatUptime(hc.now().Sub(hc.startTime)),
		Checks: checks,
	})
}

// HandleLiveness always answers 200 while the process runs.
//
//	GET /healthz/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(hc.now().Sub(hc.startTime)),
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, 3)

	go func() { ch <- result{"database", hc.checkDatabase(ctx)} }()
	go func() { ch <- result{"redis", hc.checkRedis(ctx)} }()
	go func() { ch <- result{"poller", hc.checkPoller()} }()

	checks := make(map[string]ComponentCheck, 3)
	for i := 0; i < 3; i++ {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "disabled"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	start := time.Now()
	err := hc.db.PingContext(pingCtx)
	return latencyCheck(time.Since(start), time.Second, err)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redisClient == nil {
		return ComponentCheck{Status: "disabled"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	err := hc.redisClient.Ping(pingCtx).Err()
	return latencyCheck(time.Since(start), 500*time.Millisecond, err)
}

func latencyCheck(latency, slow time.Duration, err error) ComponentCheck {
	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	if latency > slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

// checkPoller looks at when the last cycle finished.
func (hc *HealthChecker) checkPoller() ComponentCheck {
	if hc.stats == nil {
		return ComponentCheck{Status: "disabled"}
	}
	now := hc.now()
	last := hc.stats.Snapshot().LastCycleEnded
	if last.IsZero() {
		if now.Sub(hc.startTime) < hc.staleAfter {
			return ComponentCheck{Status: "up", Message: "starting"}
		}
		return ComponentCheck{Status: "degraded", Message: "no cycle completed yet"}
	}
	if age := now.Sub(last); age > hc.staleAfter {
		return ComponentCheck{Status: "degraded", Message: fmt.Sprintf("last cycle %s ago", age.Round(time.Second))}
	}
	return ComponentCheck{Status: "up", Message: "cycling"}
}

// determineOverallStatus is unhealthy when a configured dependency is down
// and degraded when anything is slow or the loop is stalled.
func determineOverallStatus(checks map[string]ComponentCheck) string {
	status := "healthy"
	for _, c := range checks {
		switch c.Status {
		case "down":
			return "unhealthy"
		case "degraded":
			status = "degraded"
		}
	}
	return status
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, int(d.Seconds())%60)
}
