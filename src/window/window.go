package window

import (
	"errors"
	"strings"
)

// Capacity is how many proxies one requester holds at most.
const Capacity = 3

var (
	ErrStoreUnavailable = errors.New("window store unavailable")
	// ErrConflict is returned when a window kept changing under an update.
	ErrConflict = errors.New("window update conflict")
)

// Window is the bounded, oldest-first list of proxies a requester holds.
type Window struct {
	RequesterID int64    `json:"requester_id"`
	Proxies     []string `json:"proxies"`
	Locale      string   `json:"locale"`
}

func (w *Window) Contains(address string) bool {
	for _, held := range w.Proxies {
		if held == address {
			return true
		}
	}
	return false
}

// Push appends address unless it is empty or already held, dropping the
// oldest entry when the window is full. It reports whether the window changed.
func (w *Window) Push(address string) bool {
	if address == "" || w.Contains(address) {
		return false
	}
	next := make([]string, 0, Capacity)
	if len(w.Proxies) >= Capacity {
		next = append(next, w.Proxies[len(w.Proxies)-Capacity+1:]...)
	} else {
		next = append(next, w.Proxies...)
	}
	w.Proxies = append(next, address)
	return true
}

// Current is the newest held proxy.
func (w *Window) Current() (string, bool) {
	if len(w.Proxies) == 0 {
		return "", false
	}
	return w.Proxies[len(w.Proxies)-1], true
}

func encodeProxies(proxies []string) string {
	return strings.Join(proxies, ",")
}

// decodeProxies parses the comma-joined form. Duplicates and entries beyond
// the capacity are dropped, keeping the newest.
func decodeProxies(s string) []string {
	if s == "" {
		return []string{}
	}
	w := Window{Proxies: []string{}}
	for _, addr := range strings.Split(s, ",") {
		w.Push(strings.TrimSpace(addr))
	}
	return w.Proxies
}
