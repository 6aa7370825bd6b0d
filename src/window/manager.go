package window

import (
	"context"
)

// Manager owns the per-requester windows. Every mutation goes through
// Store.Update, so two allocations for the same requester cannot overwrite
// each other's entry.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// GetWindow returns the requester's window, empty if never seen.
func (m *Manager) GetWindow(ctx context.Context, requesterID int64) (Window, error) {
	return m.store.Load(ctx, requesterID)
}

// RecordAllocation pushes address into the window (when non-empty and not
// already held) and always stores the latest locale.
func (m *Manager) RecordAllocation(ctx context.Context, requesterID int64, address, locale string) (Window, error) {
	return m.store.Update(ctx, requesterID, func(w *Window) {
		w.Push(address)
		w.Locale = locale
	})
}
