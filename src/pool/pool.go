package pool

import (
	"context"
	"math/rand"
	"sync"
)

// ProxyPool is the in-process Store. It backs tests and runs the service when
// no Mongo URI is configured.
type ProxyPool struct {
	proxies map[string]Proxy
	mux     sync.RWMutex
}

func NewProxyPool() *ProxyPool {
	return &ProxyPool{
		proxies: map[string]Proxy{},
	}
}

func (pp *ProxyPool) Upsert(ctx context.Context, p *Proxy) error {
	if p == nil || p.Address == "" {
		return ErrInvalidAddress
	}
	pp.mux.Lock()
	pp.proxies[p.Address] = *p
	pp.mux.Unlock()
	return nil
}

func (pp *ProxyPool) SampleLive(ctx context.Context, exclude []string) (string, error) {
	return pp.sample(excludeSet(exclude))
}

func (pp *ProxyPool) SampleAnyLive(ctx context.Context) (string, error) {
	return pp.sample(nil)
}

func (pp *ProxyPool) sample(exclude map[string]struct{}) (string, error) {
	pp.mux.RLock()
	defer pp.mux.RUnlock()

	candidates := make([]string, 0, len(pp.proxies))
	for addr, p := range pp.proxies {
		if !p.Alive {
			continue
		}
		if _, held := exclude[addr]; held {
			continue
		}
		candidates = append(candidates, addr)
	}
	if len(candidates) == 0 {
		return "", ErrNoLiveProxy
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func (pp *ProxyPool) Get(ctx context.Context, address string) (*Proxy, error) {
	pp.mux.RLock()
	p, ok := pp.proxies[address]
	pp.mux.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (pp *ProxyPool) Stats(ctx context.Context) (Stats, error) {
	pp.mux.RLock()
	defer pp.mux.RUnlock()

	stats := Stats{Total: int64(len(pp.proxies))}
	for _, p := range pp.proxies {
		if p.Alive {
			stats.Live++
		}
	}
	return stats, nil
}

func (pp *ProxyPool) Ping(ctx context.Context) error {
	return nil
}
