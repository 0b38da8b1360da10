package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("order: not found")
	ErrInvalidTotal = errors.New("order: total must be greater than zero")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Order mirrors the slice of the host platform's order this component
// reads. The host owns the record; we only request status transitions.
// Amount is in minor currency units.
type Order struct {
	ID         string
	Ref        string
	CustomerID string
	CartID     string
	LinkToken  string
	Amount     int64
	Currency   string
	ItemCount  int
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (o *Order) MarkPaid() {
	o.Status = StatusPaid
	o.touch()
}

func (o *Order) MarkFailed() {
	o.Status = StatusFailed
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repositories never hand out shared state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
