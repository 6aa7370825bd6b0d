package healthcheck

import (
	"context"
	"time"

	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
)

var checkTimeout = 3 * time.Second

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named dependency.
type Check struct {
	Name   string
	Target Pinger
}

func checkOne(ctx context.Context, c Check, ch chan<- HealthCheckResponse) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := c.Target.Ping(ctx)
	hcResponse := HealthCheckResponse{
		Name:           c.Name,
		Success:        err == nil,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		hcResponse.Error = err.Error()
	}
	ch <- hcResponse
}

// Run pings every dependency concurrently. Results keep the order of checks.
func Run(ctx context.Context, checks ...Check) Report {
	ch := make(chan HealthCheckResponse, len(checks))
	for _, c := range checks {
		go checkOne(ctx, c, ch)
	}

	results := make(map[string]HealthCheckResponse, len(checks))
	for range checks {
		checkResult := <-ch
		results[checkResult.Name] = checkResult
	}

	report := Report{Healthy: true, Checks: make([]HealthCheckResponse, 0, len(checks))}
	for _, c := range checks {
		checkResult := results[c.Name]
		if !checkResult.Success {
			report.Healthy = false
			l := logger.WithComponent("Healthcheck")
			l.Warn().Str("dependency", c.Name).Str("error", checkResult.Error).Msg("Dependency is unhealthy.")
		}
		report.Checks = append(report.Checks, checkResult)
	}
	return report
}
