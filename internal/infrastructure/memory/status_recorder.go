package memory

import (
	"context"
	"sync"

	domain "github.com/openstudio/payflow/internal/domain/order"
)

// StatusNotification is one recorded fire-and-forget status transition.
type StatusNotification struct {
	OrderID string
	Status  domain.Status
}

// StatusRecorder implements order.StatusNotifier by remembering every
// notification. Used when no broker is configured, and by tests.
type StatusRecorder struct {
	mu            sync.Mutex
	notifications []StatusNotification
}

func NewStatusRecorder() *StatusRecorder {
	return &StatusRecorder{}
}

func (r *StatusRecorder) NotifyStatus(ctx context.Context, o *domain.Order, status domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, StatusNotification{OrderID: o.ID, Status: status})
	return nil
}

func (r *StatusRecorder) Notifications() []StatusNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatusNotification, len(r.notifications))
	copy(out, r.notifications)
	return out
}
