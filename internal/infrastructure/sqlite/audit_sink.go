package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openstudio/payflow/internal/domain/audit"
)

// AuditSink writes audit entries straight to the handle, never through
// the ambient dispatch transaction: a rolled-back dispatch must still
// leave its failure entry behind.
type AuditSink struct {
	db *sql.DB
}

func NewAuditSink(db *sql.DB) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Append(ctx context.Context, e audit.Entry) error {
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_log(order_id, customer_id, state, message, severity, logged_unix)
VALUES(?,?,?,?,?,?);
`, e.OrderID, e.CustomerID, e.State, e.Message, string(e.Severity), e.LoggedAt.Unix())
	return err
}

func (s *AuditSink) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT order_id, customer_id, state, message, severity, logged_unix
FROM audit_log ORDER BY id DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var severity string
		var logged int64
		if err := rows.Scan(&e.OrderID, &e.CustomerID, &e.State, &e.Message, &severity, &logged); err != nil {
			return nil, err
		}
		e.Severity = audit.Severity(severity)
		e.LoggedAt = time.Unix(logged, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
