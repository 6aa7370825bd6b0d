package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRunAllHealthy(t *testing.T) {
	report := Run(context.Background(),
		Check{Name: "pool", Target: pingFunc(func(context.Context) error { return nil })},
		Check{Name: "windows", Target: pingFunc(func(context.Context) error { return nil })},
	)
	assert.True(t, report.Healthy)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "pool", report.Checks[0].Name)
	assert.Equal(t, "windows", report.Checks[1].Name)
}

func TestRunReportsFailureAndTimeout(t *testing.T) {
	old := checkTimeout
	checkTimeout = 20 * time.Millisecond
	defer func() { checkTimeout = old }()

	report := Run(context.Background(),
		Check{Name: "pool", Target: pingFunc(func(context.Context) error { return errors.New("refused") })},
		Check{Name: "windows", Target: pingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})},
	)
	assert.False(t, report.Healthy)
	assert.Equal(t, "refused", report.Checks[0].Error)
	assert.False(t, report.Checks[1].Success)
	assert.Contains(t, report.Checks[1].Error, "deadline")
}
