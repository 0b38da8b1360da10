package memory

import (
	"context"
	"sync"

	"github.com/openstudio/payflow/internal/domain/payment"
)

type CartRefRepository struct {
	mu   sync.RWMutex
	refs map[string]payment.CartPaymentRef
}

func NewCartRefRepository() *CartRefRepository {
	return &CartRefRepository{refs: make(map[string]payment.CartPaymentRef)}
}

func (r *CartRefRepository) Put(ref payment.CartPaymentRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref.CartID] = ref
}

func (r *CartRefRepository) FindByCartID(ctx context.Context, cartID string) (*payment.CartPaymentRef, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.refs[cartID]
	if !ok {
		return nil, payment.ErrCartRefNotFound
	}
	clone := ref
	return &clone, nil
}

type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]payment.Plan
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[string]payment.Plan)}
}

func (r *PlanRepository) Put(plan payment.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = plan
}

func (r *PlanRepository) FindByID(ctx context.Context, id string) (*payment.Plan, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return nil, payment.ErrPlanNotFound
	}
	clone := plan
	return &clone, nil
}

type OutcomeStore struct {
	mu      sync.RWMutex
	records []payment.OutcomeRecord
}

func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{}
}

func (s *OutcomeStore) Append(ctx context.Context, rec payment.OutcomeRecord) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *OutcomeStore) LatestApproved(ctx context.Context, orderID string) (*payment.OutcomeRecord, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.OrderID == orderID && rec.State == payment.StateApproved {
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *OutcomeStore) TransactionRef(ctx context.Context, orderID string) (string, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.OrderID == orderID && rec.Reference != "" {
			return rec.Reference, nil
		}
	}
	return "", nil
}

// Records returns a copy of everything appended so far.
func (s *OutcomeStore) Records() []payment.OutcomeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]payment.OutcomeRecord, len(s.records))
	copy(out, s.records)
	return out
}
