package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exGeni/free-proxy-telegram-bot/src/feed"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REFRESH_INTERVAL", "")
	t.Setenv("MONGO_URI", "")

	cfg := Load()
	assert.Equal(t, feed.DefaultURL, cfg.FeedURL)
	assert.Equal(t, 300*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 30*time.Second, cfg.FeedTimeout)
	assert.True(t, cfg.AllowReissue)
	assert.Equal(t, ":8080", cfg.HTTPPort)
	assert.Empty(t, cfg.MongoURI)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadIniThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[feed]
url = http://feed.local/proxies
refresh_interval = 2m

[pool]
allow_reissue = false

[redis]
addr = redis.local:6379
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_ADDR", "override:6379")
	t.Setenv("FEED_TIMEOUT", "10")
	t.Setenv("INGEST_RATE", "lots")

	cfg := Load()
	assert.Equal(t, "http://feed.local/proxies", cfg.FeedURL)
	assert.Equal(t, 2*time.Minute, cfg.RefreshInterval)
	assert.False(t, cfg.AllowReissue)
	assert.Equal(t, "override:6379", cfg.RedisAddr)
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 0, cfg.IngestRate)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "INGEST_RATE")
}

func TestLoadMissingIniFileWarns(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.ini"))
	cfg := Load()
	require.NotEmpty(t, cfg.Warnings)
	assert.Contains(t, cfg.Warnings[0], "cannot read config file")
}
