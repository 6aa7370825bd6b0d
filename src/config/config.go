package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/exGeni/free-proxy-telegram-bot/src/feed"
)

type Config struct {
	FeedURL         string
	FeedTimeout     time.Duration
	RefreshInterval time.Duration
	IngestRate      int

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	HTTPPort       string
	RequesterRate  float64
	RequesterBurst int

	AllowReissue bool

	StatsdHost     string
	StatsdPort     int
	AlertManager   string
	AlertThreshold int

	LogLevel    string
	LogglyToken string
	Environment string

	// Warnings collects values that were rejected in favour of the default.
	// They are logged once the logger is up.
	Warnings []string
}

// source resolves a key from the environment first, then the ini file.
type source struct {
	file *ini.File
	cfg  *Config
}

func (s source) lookup(env, section, key string) (string, bool) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v, true
	}
	if s.file.Section(section).HasKey(key) {
		return s.file.Section(section).Key(key).String(), true
	}
	return "", false
}

func (s source) str(env, section, key, def string) string {
	if v, ok := s.lookup(env, section, key); ok {
		return v
	}
	return def
}

func (s source) integer(env, section, key string, def int) int {
	v, ok := s.lookup(env, section, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.warn(env, v, def)
		return def
	}
	return n
}

func (s source) float(env, section, key string, def float64) float64 {
	v, ok := s.lookup(env, section, key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		s.warn(env, v, def)
		return def
	}
	return f
}

func (s source) boolean(env, section, key string, def bool) bool {
	v, ok := s.lookup(env, section, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.warn(env, v, def)
		return def
	}
	return b
}

// duration accepts Go durations ("5m") and bare seconds ("300").
func (s source) duration(env, section, key string, def time.Duration) time.Duration {
	v, ok := s.lookup(env, section, key)
	if !ok {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		s.warn(env, v, def)
		return def
	}
	return d
}

func (s source) warn(env, value string, def interface{}) {
	s.cfg.Warnings = append(s.cfg.Warnings, fmt.Sprintf("invalid %s=%q, using default %v", env, value, def))
}

// Load reads .env (if present), the ini file named by CONFIG_FILE (if any) and
// the environment. Environment values win over the ini file.
func Load() *Config {
	cfg := &Config{}
	_ = godotenv.Load()

	file := ini.Empty()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := ini.Load(path)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("cannot read config file %s: %v", path, err))
		} else {
			file = loaded
		}
	}
	s := source{file: file, cfg: cfg}

	cfg.FeedURL = s.str("FEED_URL", "feed", "url", feed.DefaultURL)
	cfg.FeedTimeout = s.duration("FEED_TIMEOUT", "feed", "timeout", 30*time.Second)
	cfg.RefreshInterval = s.duration("REFRESH_INTERVAL", "feed", "refresh_interval", 300*time.Second)
	cfg.IngestRate = s.integer("INGEST_RATE", "feed", "ingest_rate", 0)

	cfg.MongoURI = s.str("MONGO_URI", "mongo", "uri", "")
	cfg.MongoDatabase = s.str("MONGO_DATABASE", "mongo", "database", "proxybot")
	cfg.MongoCollection = s.str("MONGO_COLLECTION", "mongo", "collection", "proxies")

	cfg.RedisAddr = s.str("REDIS_ADDR", "redis", "addr", "")
	cfg.RedisPassword = s.str("REDIS_PASSWORD", "redis", "password", "")
	cfg.RedisDB = s.integer("REDIS_DB", "redis", "db", 0)
	cfg.RedisPrefix = s.str("REDIS_PREFIX", "redis", "prefix", "proxybot")

	cfg.HTTPPort = s.str("HTTP_PORT", "http", "port", ":8080")
	cfg.RequesterRate = s.float("REQUESTER_RATE", "http", "requester_rate", 1)
	cfg.RequesterBurst = s.integer("REQUESTER_BURST", "http", "requester_burst", 3)

	cfg.AllowReissue = s.boolean("ALLOW_REISSUE", "pool", "allow_reissue", true)

	cfg.StatsdHost = s.str("STATSD_HOST", "metrics", "statsd_host", "")
	cfg.StatsdPort = s.integer("STATSD_PORT", "metrics", "statsd_port", 8125)
	cfg.AlertManager = s.str("ALERT_MANAGER", "metrics", "alert_manager", "")
	cfg.AlertThreshold = s.integer("ALERT_THRESHOLD", "metrics", "alert_threshold", 3)

	cfg.LogLevel = s.str("LOG_LEVEL", "log", "level", "info")
	cfg.LogglyToken = s.str("LOGGLY_TOKEN", "log", "loggly_token", "")
	cfg.Environment = s.str("ENVIRONMENT", "log", "environment", "development")

	return cfg
}
