package payment

import (
	"context"
	"time"
)

// State reported by the gateway for a payment or agreement.
type State string

const (
	StateApproved State = "approved"
	StateCreated  State = "created"
	StateRefused  State = "refused"
)

// Outcome normalizes what a flow returns. Approved only ever comes from a
// synchronous capture; created outcomes carry the approval link the payer
// must visit.
type Outcome struct {
	State        State
	Reference    string
	ApprovalLink string
}

// OutcomeRecord is the persisted trace of one dispatch attempt. The nonce
// distinguishes repeated attempts for the same order.
type OutcomeRecord struct {
	OrderID      string
	CustomerID   string
	Method       string
	State        State
	Reference    string
	ApprovalLink string
	Nonce        string
	CreatedAt    time.Time
}

// OutcomeStore persists outcome records inside the dispatch transaction,
// so a rolled-back attempt leaves no record here (the audit sink keeps the
// failure trail instead).
type OutcomeStore interface {
	Append(ctx context.Context, rec OutcomeRecord) error
	LatestApproved(ctx context.Context, orderID string) (*OutcomeRecord, error)
	TransactionRef(ctx context.Context, orderID string) (string, error)
}
