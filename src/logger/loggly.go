package logger

import (
	"strings"

	"github.com/rs/zerolog"
	logglyapi "github.com/segmentio/go-loggly"
)

// LogglyClient forwards rendered log lines to loggly.
type LogglyClient struct {
	Client *logglyapi.Client
}

func newLogglyClient(token, environment string) *LogglyClient {
	return &LogglyClient{
		Client: logglyapi.New(token, "free-proxy-bot", environment),
	}
}

func (lc *LogglyClient) Write(p []byte) (int, error) {
	return lc.WriteLevel(zerolog.InfoLevel, p)
}

// WriteLevel makes LogglyClient a zerolog.LevelWriter. Errors and above are
// flushed straight away so they survive a crash.
func (lc *LogglyClient) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if lc.Client == nil {
		return len(p), nil
	}
	msg := strings.TrimSpace(string(p))
	if level >= zerolog.ErrorLevel {
		if err := lc.Client.Error(msg); err != nil {
			return 0, err
		}
		return len(p), lc.Client.Flush()
	}
	if err := lc.Client.Info(msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (lc *LogglyClient) Flush() error {
	if lc.Client == nil {
		return nil
	}
	return lc.Client.Flush()
}
