package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openstudio/payflow/internal/domain/payment"
)

type CartRefRepository struct {
	db *sql.DB
}

func NewCartRefRepository(db *sql.DB) *CartRefRepository {
	return &CartRefRepository{db: db}
}

func (r *CartRefRepository) Put(ctx context.Context, ref payment.CartPaymentRef) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO cart_payment_refs(cart_id, credit_card_id, plan_id) VALUES(?,?,?)
ON CONFLICT(cart_id) DO UPDATE SET
  credit_card_id=excluded.credit_card_id,
  plan_id=excluded.plan_id;
`, ref.CartID, ref.CreditCardID, ref.PlanID)
	return err
}

func (r *CartRefRepository) FindByCartID(ctx context.Context, cartID string) (*payment.CartPaymentRef, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT cart_id, credit_card_id, plan_id FROM cart_payment_refs WHERE cart_id=?;
`, cartID)
	var ref payment.CartPaymentRef
	if err := row.Scan(&ref.CartID, &ref.CreditCardID, &ref.PlanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrCartRefNotFound
		}
		return nil, err
	}
	return &ref, nil
}

type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Put(ctx context.Context, plan payment.Plan) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO planified_payments(id, title, frequency, frequency_interval, total_cycles)
VALUES(?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  title=excluded.title,
  frequency=excluded.frequency,
  frequency_interval=excluded.frequency_interval,
  total_cycles=excluded.total_cycles;
`, plan.ID, plan.Title, plan.Frequency, plan.FrequencyInterval, plan.TotalCycles)
	return err
}

func (r *PlanRepository) FindByID(ctx context.Context, id string) (*payment.Plan, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT id, title, frequency, frequency_interval, total_cycles FROM planified_payments WHERE id=?;
`, id)
	var plan payment.Plan
	if err := row.Scan(&plan.ID, &plan.Title, &plan.Frequency, &plan.FrequencyInterval, &plan.TotalCycles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

type OutcomeStore struct {
	db *sql.DB
}

func NewOutcomeStore(db *sql.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

func (s *OutcomeStore) Append(ctx context.Context, rec payment.OutcomeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := conn(ctx, s.db).ExecContext(ctx, `
INSERT INTO payment_outcomes(order_id, customer_id, method, state, reference, approval_link, nonce, created_unix)
VALUES(?,?,?,?,?,?,?,?);
`, rec.OrderID, rec.CustomerID, rec.Method, string(rec.State), rec.Reference, rec.ApprovalLink, rec.Nonce,
		rec.CreatedAt.Unix())
	return err
}

func (s *OutcomeStore) LatestApproved(ctx context.Context, orderID string) (*payment.OutcomeRecord, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
SELECT order_id, customer_id, method, state, reference, approval_link, nonce, created_unix
FROM payment_outcomes WHERE order_id=? AND state=? ORDER BY id DESC LIMIT 1;
`, orderID, string(payment.StateApproved))
	rec, err := scanOutcome(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (s *OutcomeStore) TransactionRef(ctx context.Context, orderID string) (string, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
SELECT reference FROM payment_outcomes WHERE order_id=? AND reference<>'' ORDER BY id DESC LIMIT 1;
`, orderID)
	var ref string
	if err := row.Scan(&ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return ref, nil
}

func scanOutcome(row *sql.Row) (*payment.OutcomeRecord, error) {
	var rec payment.OutcomeRecord
	var state string
	var created int64
	err := row.Scan(&rec.OrderID, &rec.CustomerID, &rec.Method, &state, &rec.Reference, &rec.ApprovalLink,
		&rec.Nonce, &created)
	if err != nil {
		return nil, err
	}
	rec.State = payment.State(state)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return &rec, nil
}
