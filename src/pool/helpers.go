package pool

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

var ipPattern = regexp.MustCompile(`(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])`)

func findIP(input string) string {
	return ipPattern.FindString(input)
}

// DisplayProtocol falls back to the address scheme when the feed sent none.
func (p *Proxy) DisplayProtocol() string {
	if p.Protocol != nil && *p.Protocol != "" {
		return *p.Protocol
	}
	if u, err := url.Parse(p.Address); err == nil && u.Scheme != "" {
		return u.Scheme
	}
	return "N/A"
}

// DisplayIP falls back to the host part of the address.
func (p *Proxy) DisplayIP() string {
	if p.IP != nil && *p.IP != "" {
		return *p.IP
	}
	if ip := findIP(p.Address); ip != "" {
		return ip
	}
	if u, err := url.Parse(p.Address); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "N/A"
}

// DisplayPort falls back to the port part of the address.
func (p *Proxy) DisplayPort() string {
	if p.Port != nil {
		return strconv.Itoa(*p.Port)
	}
	if u, err := url.Parse(p.Address); err == nil {
		if _, port, err := net.SplitHostPort(u.Host); err == nil {
			return port
		}
	}
	return "N/A"
}

// LatencyMsOr returns the latency in whole milliseconds, or def when unknown.
func (p *Proxy) LatencyMsOr(def int) int {
	if p.LatencyMs == nil {
		return def
	}
	return int(*p.LatencyMs)
}

// LastSeenString formats LastSeenAt the way it is shown to requesters.
func (p *Proxy) LastSeenString() string {
	if p.LastSeenAt == nil {
		return "N/A"
	}
	return p.LastSeenAt.UTC().Format(time.DateTime)
}

func stringOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func (p *Proxy) DisplayCountryCode() string { return stringOr(p.CountryCode, "N/A") }
func (p *Proxy) DisplayCountry() string     { return stringOr(p.Country, "N/A") }
func (p *Proxy) DisplayAnonymity() string   { return stringOr(p.AnonymityLevel, "N/A") }
