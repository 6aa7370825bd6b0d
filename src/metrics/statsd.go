package metrics

import (
	"fmt"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"

	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
)

// StatsdClient is safe to use as a nil pointer or without a connection; the
// calls are then no-ops.
type StatsdClient struct {
	Client statsd.Statter
}

// NewStatsdClient connects to host:port. An empty host disables metrics.
func NewStatsdClient(host string, port int) *StatsdClient {
	l := logger.WithComponent("Metrics")
	sd := &StatsdClient{}
	if host == "" {
		l.Warn().Msg("Hostname for statsd is empty. Metrics are disabled.")
		return sd
	}

	address := fmt.Sprintf("%s:%d", host, port)
	l.Info().Str("address", address).Msg("Statsd connecting...")

	config := &statsd.ClientConfig{
		Address:       address,
		Prefix:        "proxy_bot",
		UseBuffered:   true,
		FlushInterval: 300 * time.Millisecond,
	}

	client, err := statsd.NewClientWithConfig(config)
	if err != nil {
		l.Error().Err(err).Msg("Error on Statsd init")
		return sd
	}

	sd.Client = client
	l.Info().Msg("Statsd init successful")
	return sd
}

func (sd *StatsdClient) Inc(statName string) {
	if sd == nil || sd.Client == nil {
		return
	}
	if err := sd.Client.Inc(statName, 1, 1.0); err != nil {
		l := logger.WithComponent("Metrics")
		l.Debug().Err(err).Str("stat", statName).Msg("Error on Statsd Inc")
	}
}

func (sd *StatsdClient) Count(statName string, value int64) {
	if sd == nil || sd.Client == nil {
		return
	}
	if err := sd.Client.Inc(statName, value, 1.0); err != nil {
		l := logger.WithComponent("Metrics")
		l.Debug().Err(err).Str("stat", statName).Msg("Error on Statsd Inc")
	}
}

func (sd *StatsdClient) Timing(statName string, d time.Duration) {
	if sd == nil || sd.Client == nil {
		return
	}
	if err := sd.Client.TimingDuration(statName, d, 1.0); err != nil {
		l := logger.WithComponent("Metrics")
		l.Debug().Err(err).Str("stat", statName).Msg("Error on Statsd Timing")
	}
}

func (sd *StatsdClient) Gauge(statName string, value int64) {
	if sd == nil || sd.Client == nil {
		return
	}
	if err := sd.Client.Gauge(statName, value, 1.0); err != nil {
		l := logger.WithComponent("Metrics")
		l.Debug().Err(err).Str("stat", statName).Msg("Error on Statsd Gauge")
	}
}

func (sd *StatsdClient) Close() {
	if sd == nil || sd.Client == nil {
		return
	}
	_ = sd.Client.Close()
}
