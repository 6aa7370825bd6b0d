package rotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
	"github.com/exGeni/free-proxy-telegram-bot/src/window"
)

// ErrUnavailable is what a requester sees when a backing store is down.
var ErrUnavailable = errors.New("no proxies available, try later")

// Holdings is a requester's window resolved to records, newest last.
type Holdings struct {
	Current  *pool.Proxy
	Previous []*pool.Proxy
	Locale   string
}

// Service is the request flow shared by every requester-facing surface.
type Service struct {
	store     pool.Store
	allocator *pool.Allocator
	windows   *window.Manager
}

func NewService(store pool.Store, allocator *pool.Allocator, windows *window.Manager) *Service {
	return &Service{
		store:     store,
		allocator: allocator,
		windows:   windows,
	}
}

// Register records a requester's first contact and locale.
func (s *Service) Register(ctx context.Context, requesterID int64, locale string) error {
	_, err := s.windows.RecordAllocation(ctx, requesterID, "", locale)
	return wrapUnavailable(err)
}

// Current resolves the requester's window. Addresses whose record is gone are
// left out.
func (s *Service) Current(ctx context.Context, requesterID int64) (Holdings, error) {
	w, err := s.windows.GetWindow(ctx, requesterID)
	if err != nil {
		return Holdings{}, wrapUnavailable(err)
	}

	resolved := make([]*pool.Proxy, 0, len(w.Proxies))
	for _, addr := range w.Proxies {
		p, err := s.store.Get(ctx, addr)
		if errors.Is(err, pool.ErrNotFound) {
			continue
		}
		if err != nil {
			return Holdings{}, wrapUnavailable(err)
		}
		resolved = append(resolved, p)
	}

	h := Holdings{Locale: w.Locale}
	if len(resolved) > 0 {
		h.Current = resolved[len(resolved)-1]
		h.Previous = resolved[:len(resolved)-1]
	}
	return h, nil
}

// Rotate hands the requester a fresh proxy and records it in the window.
// pool.ErrPoolExhausted means nothing can be handed out right now.
func (s *Service) Rotate(ctx context.Context, requesterID int64, locale string) (*pool.Proxy, error) {
	l := logger.WithComponent("Rotation")

	w, err := s.windows.GetWindow(ctx, requesterID)
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	addr, err := s.allocator.Allocate(ctx, w.Proxies)
	if errors.Is(err, pool.ErrPoolExhausted) {
		l.Info().Int64("requester", requesterID).Msg("Pool exhausted.")
		if _, err := s.windows.RecordAllocation(ctx, requesterID, "", locale); err != nil {
			l.Warn().Err(err).Int64("requester", requesterID).Msg("Could not store locale.")
		}
		return nil, pool.ErrPoolExhausted
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	p, err := s.store.Get(ctx, addr)
	if errors.Is(err, pool.ErrNotFound) {
		return nil, pool.ErrPoolExhausted
	}
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	if _, err := s.windows.RecordAllocation(ctx, requesterID, addr, locale); err != nil {
		return nil, wrapUnavailable(err)
	}

	l.Info().Int64("requester", requesterID).Str("proxy", addr).Msg("Proxy assigned.")
	return p, nil
}

func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
