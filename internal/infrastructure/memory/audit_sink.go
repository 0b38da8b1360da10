package memory

import (
	"context"
	"sync"

	"github.com/openstudio/payflow/internal/domain/audit"
)

type AuditSink struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

func (s *AuditSink) Append(ctx context.Context, e audit.Entry) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// Recent returns the newest entries first.
func (s *AuditSink) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]audit.Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Entries returns a copy in append order.
func (s *AuditSink) Entries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
