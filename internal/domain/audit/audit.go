package audit

import (
	"context"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityCritical Severity = "critical"
)

// Entry is one append-only audit line: written once per dispatch attempt
// or admin action, never updated or deleted.
type Entry struct {
	OrderID    string
	CustomerID string
	State      string
	Message    string
	Severity   Severity
	LoggedAt   time.Time
}

// Sink persists entries on its own connection, outside any dispatch
// transaction, so a rollback never erases the failure trail.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
