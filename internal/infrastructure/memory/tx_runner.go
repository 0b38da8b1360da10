package memory

import (
	"context"
	"sync"
)

// TxRunner satisfies dispatch.TxRunner without a database: fn runs
// directly and the outcome is tallied so tests can assert commit versus
// rollback behavior.
type TxRunner struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func NewTxRunner() *TxRunner {
	return &TxRunner{}
}

func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

func (r *TxRunner) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

func (r *TxRunner) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}
