package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	*ProxyPool
}

func (b *brokenStore) SampleLive(ctx context.Context, exclude []string) (string, error) {
	return "", unavailable("sample", errors.New("connection refused"))
}

func TestAllocateNeverReturnsExcludedWhenAlternativeExists(t *testing.T) {
	ctx := context.Background()
	pp := NewProxyPool()
	seed(t, pp, map[string]bool{"a": true, "b": true, "c": true, "d": false})
	alloc := NewAllocator(pp, true, nil)

	for i := 0; i < 100; i++ {
		addr, err := alloc.Allocate(ctx, []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, "c", addr)
	}
}

func TestAllocateFallsBackToHeldProxy(t *testing.T) {
	ctx := context.Background()
	pp := NewProxyPool()
	seed(t, pp, map[string]bool{"a": true, "b": true})

	addr, err := NewAllocator(pp, true, nil).Allocate(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, addr)
}

func TestAllocateWithoutReissue(t *testing.T) {
	ctx := context.Background()
	pp := NewProxyPool()
	seed(t, pp, map[string]bool{"a": true})

	_, err := NewAllocator(pp, false, nil).Allocate(ctx, []string{"a"})
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestAllocateExhaustedOnlyWithoutLiveProxies(t *testing.T) {
	ctx := context.Background()
	pp := NewProxyPool()
	alloc := NewAllocator(pp, true, nil)

	_, err := alloc.Allocate(ctx, nil)
	assert.ErrorIs(t, err, ErrPoolExhausted)

	seed(t, pp, map[string]bool{"dead": false})
	_, err = alloc.Allocate(ctx, []string{"x"})
	assert.ErrorIs(t, err, ErrPoolExhausted)

	seed(t, pp, map[string]bool{"live": true})
	addr, err := alloc.Allocate(ctx, []string{"live"})
	require.NoError(t, err)
	assert.Equal(t, "live", addr)
}

func TestAllocateSurfacesStoreUnavailable(t *testing.T) {
	store := &brokenStore{ProxyPool: NewProxyPool()}
	_, err := NewAllocator(store, true, nil).Allocate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrPoolExhausted)
}
