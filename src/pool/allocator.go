package pool

import (
	"context"
	"errors"

	"github.com/exGeni/free-proxy-telegram-bot/src/metrics"
)

// Allocator hands out one live proxy a requester does not already hold.
type Allocator struct {
	store        Store
	allowReissue bool
	metrics      *metrics.StatsdClient
}

// NewAllocator builds an allocator over store. With allowReissue a requester
// that already holds every live proxy gets one of them again instead of
// nothing.
func NewAllocator(store Store, allowReissue bool, m *metrics.StatsdClient) *Allocator {
	return &Allocator{
		store:        store,
		allowReissue: allowReissue,
		metrics:      m,
	}
}

// Allocate returns a live address outside exclude when one exists. Otherwise
// it falls back to any live address, and returns ErrPoolExhausted when the
// pool has no live proxy at all.
func (a *Allocator) Allocate(ctx context.Context, exclude []string) (string, error) {
	addr, err := a.store.SampleLive(ctx, exclude)
	if err == nil {
		a.metrics.Inc("allocate.success")
		return addr, nil
	}
	if !errors.Is(err, ErrNoLiveProxy) {
		return "", err
	}

	if !a.allowReissue || len(exclude) == 0 {
		a.metrics.Inc("allocate.exhausted")
		return "", ErrPoolExhausted
	}

	addr, err = a.store.SampleAnyLive(ctx)
	if errors.Is(err, ErrNoLiveProxy) {
		a.metrics.Inc("allocate.exhausted")
		return "", ErrPoolExhausted
	}
	if err != nil {
		return "", err
	}
	a.metrics.Inc("allocate.reissued")
	return addr, nil
}
