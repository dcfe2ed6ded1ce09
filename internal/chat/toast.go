package chat

import (
	"slices"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/domain"
	"clawchat/internal/metrics"
)

// ShowToast appends a notification that removes itself after the
// configured delay. Toasts are neither deduplicated nor capped.
func (s *Store) ShowToast(msg string, typ domain.ToastType) domain.Toast {
	s.mu.Lock()
	t := domain.Toast{ID: s.stampLocked(), Message: msg, Type: typ}
	if s.closed {
		s.mu.Unlock()
		return t
	}
	s.state.Toasts = append(s.state.Toasts, t)
	s.toasts[t.ID] = time.AfterFunc(s.toastTTL, func() { s.expireToast(t.ID) })
	s.mu.Unlock()
	metrics.ToastsShown.Inc()

	s.emit(bus.EventToastShown, map[string]any{"id": t.ID, "message": msg, "type": string(typ)})
	return t
}

func (s *Store) expireToast(id int64) {
	s.mu.Lock()
	delete(s.toasts, id)
	i := slices.IndexFunc(s.state.Toasts, func(t domain.Toast) bool { return t.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.state.Toasts = slices.Delete(s.state.Toasts, i, i+1)
	s.mu.Unlock()
	s.emit(bus.EventToastExpired, map[string]any{"id": id})
}

func (s *Store) Toasts() []domain.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Toasts)
}
