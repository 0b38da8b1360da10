package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/openstudio/payflow/internal/domain/order"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO orders(id, ref, customer_id, cart_id, link_token, amount, currency, item_count, status, created_unix, updated_unix)
VALUES(?,?,?,?,?,?,?,?,?,?,?);
`, o.ID, o.Ref, o.CustomerID, o.CartID, o.LinkToken, o.Amount, o.Currency, o.ItemCount, string(o.Status),
		o.CreatedAt.Unix(), o.UpdatedAt.Unix())
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, `WHERE id=?`, id)
}

func (r *OrderRepository) FindByLinkToken(ctx context.Context, token string) (*domain.Order, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, `WHERE link_token=?`, token)
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE orders SET ref=?, customer_id=?, cart_id=?, link_token=?, amount=?, currency=?, item_count=?, status=?, updated_unix=?
WHERE id=?;
`, o.Ref, o.CustomerID, o.CartID, o.LinkToken, o.Amount, o.Currency, o.ItemCount, string(o.Status),
		o.UpdatedAt.Unix(), o.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) findOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT id, ref, customer_id, cart_id, link_token, amount, currency, item_count, status, created_unix, updated_unix
FROM orders `+where+`;`, arg)

	var o domain.Order
	var status string
	var created, updated int64
	err := row.Scan(&o.ID, &o.Ref, &o.CustomerID, &o.CartID, &o.LinkToken, &o.Amount, &o.Currency,
		&o.ItemCount, &status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.Status(status)
	o.CreatedAt = time.Unix(created, 0).UTC()
	o.UpdatedAt = time.Unix(updated, 0).UTC()
	return &o, nil
}
