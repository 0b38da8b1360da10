package order

import "context"

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByLinkToken(ctx context.Context, token string) (*Order, error)
	Update(ctx context.Context, o *Order) error
}

// StatusNotifier tells the host platform about a status transition.
// Fire and forget: the caller does not wait for the host to react, and a
// publish failure must not undo an already committed dispatch.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, o *Order, status Status) error
}
