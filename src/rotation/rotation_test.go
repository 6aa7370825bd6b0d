package rotation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
	"github.com/exGeni/free-proxy-telegram-bot/src/window"
)

type downWindowStore struct{}

func (downWindowStore) Load(ctx context.Context, id int64) (window.Window, error) {
	return window.Window{}, fmt.Errorf("%w: dial tcp: refused", window.ErrStoreUnavailable)
}

func (downWindowStore) Update(ctx context.Context, id int64, fn func(*window.Window)) (window.Window, error) {
	return window.Window{}, fmt.Errorf("%w: dial tcp: refused", window.ErrStoreUnavailable)
}

func (downWindowStore) Ping(ctx context.Context) error { return nil }

func setup(t *testing.T, live ...string) (*Service, *pool.ProxyPool, *window.Manager) {
	t.Helper()
	store := pool.NewProxyPool()
	for _, addr := range live {
		require.NoError(t, store.Upsert(context.Background(), &pool.Proxy{Address: addr, Alive: true}))
	}
	windows := window.NewManager(window.NewMemoryStore())
	return NewService(store, pool.NewAllocator(store, true, nil), windows), store, windows
}

func TestRotateThreeLiveProxiesFourTimes(t *testing.T) {
	ctx := context.Background()
	live := []string{"http://a:1", "http://b:1", "http://c:1"}
	svc, _, windows := setup(t, live...)

	for i := 0; i < 3; i++ {
		p, err := svc.Rotate(ctx, 1, "en")
		require.NoError(t, err)
		assert.Contains(t, live, p.Address)
	}
	w, err := windows.GetWindow(ctx, 1)
	require.NoError(t, err)
	require.Len(t, w.Proxies, 3)
	assert.ElementsMatch(t, live, w.Proxies)

	p, err := svc.Rotate(ctx, 1, "en")
	require.NoError(t, err)
	assert.Contains(t, live, p.Address)

	after, err := windows.GetWindow(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, w.Proxies, after.Proxies)
}

func TestRotateAvoidsHeldProxies(t *testing.T) {
	ctx := context.Background()
	svc, _, windows := setup(t, "http://a:1", "http://b:1", "http://c:1", "http://d:1", "http://e:1")

	for i := 0; i < 20; i++ {
		before, err := windows.GetWindow(ctx, 5)
		require.NoError(t, err)

		p, err := svc.Rotate(ctx, 5, "en")
		require.NoError(t, err)
		assert.NotContains(t, before.Proxies, p.Address)

		after, err := windows.GetWindow(ctx, 5)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(after.Proxies), window.Capacity)
		cur, _ := after.Current()
		assert.Equal(t, p.Address, cur)
	}
}

func TestRotateEmptyPoolKeepsLocale(t *testing.T) {
	ctx := context.Background()
	svc, _, windows := setup(t)

	_, err := svc.Rotate(ctx, 3, "de")
	assert.ErrorIs(t, err, pool.ErrPoolExhausted)

	w, err := windows.GetWindow(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, w.Proxies)
	assert.Equal(t, "de", w.Locale)
}

func TestRotateWindowStoreDown(t *testing.T) {
	store := pool.NewProxyPool()
	require.NoError(t, store.Upsert(context.Background(), &pool.Proxy{Address: "http://a:1", Alive: true}))
	svc := NewService(store, pool.NewAllocator(store, true, nil), window.NewManager(downWindowStore{}))

	_, err := svc.Rotate(context.Background(), 1, "en")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, errors.Is(err, pool.ErrPoolExhausted))

	_, err = svc.Current(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, svc.Register(context.Background(), 1, "en"), ErrUnavailable)
}

func TestCurrentSplitsNewestFromPrevious(t *testing.T) {
	ctx := context.Background()
	svc, _, windows := setup(t, "http://a:1", "http://b:1")

	h, err := svc.Current(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, h.Current)

	_, err = windows.RecordAllocation(ctx, 8, "http://a:1", "en")
	require.NoError(t, err)
	_, err = windows.RecordAllocation(ctx, 8, "http://gone:1", "en")
	require.NoError(t, err)
	_, err = windows.RecordAllocation(ctx, 8, "http://b:1", "en")
	require.NoError(t, err)

	h, err = svc.Current(ctx, 8)
	require.NoError(t, err)
	require.NotNil(t, h.Current)
	assert.Equal(t, "http://b:1", h.Current.Address)
	require.Len(t, h.Previous, 1)
	assert.Equal(t, "http://a:1", h.Previous[0].Address)
	assert.Equal(t, "en", h.Locale)
}

func TestRegisterStoresLocaleOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, windows := setup(t, "http://a:1")

	require.NoError(t, svc.Register(ctx, 11, "pt-br"))
	w, err := windows.GetWindow(ctx, 11)
	require.NoError(t, err)
	assert.Empty(t, w.Proxies)
	assert.Equal(t, "pt-br", w.Locale)
}
