package pool

import (
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable wraps any failure of the storage backend itself.
	ErrStoreUnavailable = errors.New("pool store unavailable")
	// ErrNotFound is returned by Get for an unknown address.
	ErrNotFound = errors.New("proxy not found")
	// ErrNoLiveProxy is returned by the samplers when nothing matches.
	ErrNoLiveProxy = errors.New("no live proxy matches")
	// ErrPoolExhausted is the allocator's "none" outcome. It is not a failure.
	ErrPoolExhausted = errors.New("no proxies currently available")
	// ErrInvalidAddress rejects records without an identity.
	ErrInvalidAddress = errors.New("proxy address is empty")
)

// Proxy is one observed proxy endpoint. Address is the identity; every other
// field is replaced as a whole on each ingestion, nil meaning the feed did not
// report it.
type Proxy struct {
	Address string `bson:"_id" json:"proxy"`

	Alive          bool     `bson:"alive" json:"alive"`
	Protocol       *string  `bson:"protocol" json:"protocol"`
	IP             *string  `bson:"ip" json:"ip"`
	Port           *int     `bson:"port" json:"port"`
	CountryCode    *string  `bson:"country_code" json:"country_code"`
	Country        *string  `bson:"country" json:"country"`
	AnonymityLevel *string  `bson:"anonymity" json:"anonymity"`
	UsesTLS        bool     `bson:"ssl" json:"ssl"`
	LatencyMs      *float64 `bson:"latency_ms" json:"latency_ms"`

	LastSeenAt   *time.Time `bson:"last_seen_at" json:"last_seen_at"`
	FirstSeenAt  *time.Time `bson:"first_seen_at" json:"first_seen_at"`
	AliveSinceAt *time.Time `bson:"alive_since_at" json:"alive_since_at"`

	ASN       *string `bson:"asn" json:"asn"`
	ASName    *string `bson:"as_name" json:"as_name"`
	City      *string `bson:"city" json:"city"`
	Continent *string `bson:"continent" json:"continent"`
	ISP       *string `bson:"isp" json:"isp"`
	Org       *string `bson:"org" json:"org"`
	Region    *string `bson:"region" json:"region"`
	Timezone  *string `bson:"timezone" json:"timezone"`
	ZipCode   *string `bson:"zip_code" json:"zip_code"`

	TimesAlive       *int64   `bson:"times_alive" json:"times_alive"`
	TimesDead        *int64   `bson:"times_dead" json:"times_dead"`
	UptimeRatio      *float64 `bson:"uptime" json:"uptime"`
	AverageTimeoutMs *float64 `bson:"average_timeout_ms" json:"average_timeout_ms"`
}

// Stats is a point-in-time count of the pool.
type Stats struct {
	Live  int64 `json:"live"`
	Total int64 `json:"total"`
}
