package pool

import (
	"context"
	"fmt"
)

// Store is the durable keyed collection of proxy records.
//
// Upsert must replace the whole record for an address atomically, so a
// concurrent reader sees either the old or the new record, never a mix.
// The samplers pick uniformly among live records.
type Store interface {
	Upsert(ctx context.Context, p *Proxy) error
	// SampleLive returns a random live address not in exclude, or ErrNoLiveProxy.
	SampleLive(ctx context.Context, exclude []string) (string, error)
	// SampleAnyLive returns a random live address, or ErrNoLiveProxy.
	SampleAnyLive(ctx context.Context) (string, error)
	// Get returns the record for address, or ErrNotFound.
	Get(ctx context.Context, address string) (*Proxy, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func excludeSet(exclude []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exclude))
	for _, addr := range exclude {
		set[addr] = struct{}{}
	}
	return set
}
