package payment

import (
	"context"

	"github.com/openstudio/payflow/internal/domain/order"
)

// ProviderClient is the outbound port to the payment gateway. The wire
// protocol belongs to the adapter; transport failures must surface as
// *ConnectionError so the dispatcher can classify them.
type ProviderClient interface {
	Charge(ctx context.Context, o *order.Order, cardToken string) (Outcome, error)
	CreateAgreement(ctx context.Context, o *order.Order, plan *Plan) (Outcome, error)
	CreateCheckoutSession(ctx context.Context, o *order.Order) (Outcome, error)
}
