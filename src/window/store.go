package window

import (
	"context"
	"sync"
)

// Store persists windows. Update runs fn on the current window (an empty one
// if the requester is new) and saves the result as one atomic step per
// requester.
type Store interface {
	Load(ctx context.Context, requesterID int64) (Window, error)
	Update(ctx context.Context, requesterID int64, fn func(w *Window)) (Window, error)
	Ping(ctx context.Context) error
}

// MemoryStore keeps windows in process.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[int64]Window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: map[int64]Window{}}
}

func (ms *MemoryStore) Load(ctx context.Context, requesterID int64) (Window, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.get(requesterID), nil
}

func (ms *MemoryStore) get(requesterID int64) Window {
	w, ok := ms.windows[requesterID]
	if !ok {
		return Window{RequesterID: requesterID, Proxies: []string{}}
	}
	w.Proxies = append([]string{}, w.Proxies...)
	return w
}

func (ms *MemoryStore) Update(ctx context.Context, requesterID int64, fn func(w *Window)) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	w := ms.get(requesterID)
	fn(&w)
	w.RequesterID = requesterID
	ms.windows[requesterID] = w
	return ms.get(requesterID), nil
}

func (ms *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
