package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
)

// number accepts a JSON number or a quoted one; the feed is not consistent.
type number struct {
	value float64
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	n.value = v
	return nil
}

type rawIPData struct {
	AS          *string `json:"as"`
	ASName      *string `json:"asname"`
	City        *string `json:"city"`
	Continent   *string `json:"continent"`
	Country     *string `json:"country"`
	CountryCode *string `json:"countryCode"`
	ISP         *string `json:"isp"`
	Org         *string `json:"org"`
	RegionName  *string `json:"regionName"`
	Timezone    *string `json:"timezone"`
	Zip         *string `json:"zip"`
}

type rawProxy struct {
	Proxy          *string    `json:"proxy"`
	Alive          *bool      `json:"alive"`
	AliveSince     *number    `json:"alive_since"`
	Anonymity      *string    `json:"anonymity"`
	AverageTimeout *number    `json:"average_timeout"`
	FirstSeen      *number    `json:"first_seen"`
	IP             *string    `json:"ip"`
	IPData         *rawIPData `json:"ip_data"`
	LastSeen       *number    `json:"last_seen"`
	Port           *number    `json:"port"`
	Protocol       *string    `json:"protocol"`
	SSL            *bool      `json:"ssl"`
	Timeout        *number    `json:"timeout"`
	TimesAlive     *number    `json:"times_alive"`
	TimesDead      *number    `json:"times_dead"`
	Uptime         *number    `json:"uptime"`
}

// Normalize turns one upstream object into a full pool record. Only "alive"
// and "ssl" default to false when absent; any other missing attribute is nil.
func Normalize(raw json.RawMessage) (*pool.Proxy, error) {
	var r rawProxy
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if r.Proxy == nil {
		return nil, pool.ErrInvalidAddress
	}
	address, err := normalizeAddress(*r.Proxy)
	if err != nil {
		return nil, err
	}

	p := &pool.Proxy{
		Address:          address,
		Alive:            r.Alive != nil && *r.Alive,
		UsesTLS:          r.SSL != nil && *r.SSL,
		Protocol:         r.Protocol,
		IP:               r.IP,
		Port:             toInt(r.Port),
		AnonymityLevel:   r.Anonymity,
		LatencyMs:        toFloat(r.Timeout),
		AverageTimeoutMs: toFloat(r.AverageTimeout),
		UptimeRatio:      toFloat(r.Uptime),
		TimesAlive:       toInt64(r.TimesAlive),
		TimesDead:        toInt64(r.TimesDead),
		LastSeenAt:       toTime(r.LastSeen),
		FirstSeenAt:      toTime(r.FirstSeen),
		AliveSinceAt:     toTime(r.AliveSince),
	}
	if d := r.IPData; d != nil {
		p.ASN = d.AS
		p.ASName = d.ASName
		p.City = d.City
		p.Continent = d.Continent
		p.Country = d.Country
		p.CountryCode = d.CountryCode
		p.ISP = d.ISP
		p.Org = d.Org
		p.Region = d.RegionName
		p.Timezone = d.Timezone
		p.ZipCode = d.Zip
	}
	return p, nil
}

// normalizeAddress requires scheme://host:port and lower-cases scheme and host.
func normalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", pool.ErrInvalidAddress
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("malformed proxy address %q", raw)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil || host == "" || port == "" {
		return "", fmt.Errorf("proxy address %q has no port", raw)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

func toFloat(n *number) *float64 {
	if n == nil {
		return nil
	}
	v := n.value
	return &v
}

func toInt(n *number) *int {
	if n == nil {
		return nil
	}
	v := int(n.value)
	return &v
}

func toInt64(n *number) *int64 {
	if n == nil {
		return nil
	}
	v := int64(n.value)
	return &v
}

func toTime(n *number) *time.Time {
	if n == nil || n.value <= 0 {
		return nil
	}
	sec, frac := math.Modf(n.value)
	t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return &t
}
