package eligibility

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openstudio/payflow/internal/config"
	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/observability"
	"github.com/openstudio/payflow/internal/observability/logctx"
)

const eligibilityService = "payment-eligibility"

// Input is everything the predicate needs; how it was obtained (stored
// order vs live cart) is InputFrom's business.
type Input struct {
	Total     int64
	ItemCount int
	ClientIP  string
}

// CheckoutContext carries whichever checkout context is active: a stored
// order-to-pay linkage resolved from a token, or a live cart snapshot.
type CheckoutContext struct {
	OrderToken string
	Cart       *CartSnapshot
}

type CartSnapshot struct {
	Total     int64
	ItemCount int
}

type Checker struct {
	cfg    config.Store
	orders order.Repository
	tracer observability.Tracer
	log    observability.Logger
}

func NewChecker(cfg config.Store, orders order.Repository, tel observability.Observability) *Checker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Checker{
		cfg:    cfg,
		orders: orders,
		tracer: tel.Tracer(),
		log:    tel.Logger().With(observability.F("service", eligibilityService)),
	}
}

// InputFrom resolves the order total and item count from the active
// checkout context. A token takes precedence over the live cart.
func (c *Checker) InputFrom(ctx context.Context, cc CheckoutContext, clientIP string) (Input, error) {
	if cc.OrderToken != "" {
		o, err := c.orders.FindByLinkToken(ctx, cc.OrderToken)
		if err != nil {
			return Input{}, err
		}
		return Input{Total: o.Amount, ItemCount: o.ItemCount, ClientIP: clientIP}, nil
	}
	in := Input{ClientIP: clientIP}
	if cc.Cart != nil {
		in.Total = cc.Cart.Total
		in.ItemCount = cc.Cart.ItemCount
	}
	return in, nil
}

// Check decides whether this payment method may be offered at all. Pure
// predicate: thresholds come from configuration, nothing is written.
// Bounds are inclusive; a zero threshold means unbounded.
func (c *Checker) Check(ctx context.Context, in Input) (bool, error) {
	logger := logctx.FromOr(ctx, c.log)

	ctx, span := c.tracer.Start(ctx, "UC.Eligibility",
		attribute.Int64("cart.total", in.Total),
		attribute.Int("cart.item_count", in.ItemCount),
	)
	defer span.End()

	enabled, err := config.Enabled(ctx, c.cfg)
	if err != nil {
		return false, err
	}
	if !enabled {
		return false, nil
	}

	if in.Total <= 0 {
		return false, nil
	}

	minAmount, err := config.GetInt64(ctx, c.cfg, config.KeyMinimumAmount, 0)
	if err != nil {
		return false, err
	}
	if minAmount > 0 && in.Total < minAmount {
		return false, nil
	}

	maxAmount, err := config.GetInt64(ctx, c.cfg, config.KeyMaximumAmount, 0)
	if err != nil {
		return false, err
	}
	if maxAmount > 0 && in.Total > maxAmount {
		return false, nil
	}

	maxItems, err := config.GetInt64(ctx, c.cfg, config.KeyCartItemCount, config.DefaultCartItemCount)
	if err != nil {
		return false, err
	}
	if int64(in.ItemCount) > maxItems {
		return false, nil
	}

	sandbox, err := config.Sandbox(ctx, c.cfg)
	if err != nil {
		return false, err
	}
	if sandbox {
		allowed, err := c.ipAllowed(ctx, in.ClientIP)
		if err != nil {
			return false, err
		}
		if !allowed {
			logger.Debug("sandbox_ip_rejected", observability.F("client_ip", in.ClientIP))
			return false, nil
		}
	}

	return true, nil
}

// ipAllowed checks the sandbox allow-list: one IP per line, surrounding
// whitespace ignored.
func (c *Checker) ipAllowed(ctx context.Context, clientIP string) (bool, error) {
	raw, err := c.cfg.Get(ctx, config.KeyAllowedIPList, "")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == clientIP {
			return true, nil
		}
	}
	return false, nil
}
