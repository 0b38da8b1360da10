// Package payflows holds one Flow per checkout method. Each flow wraps a
// provider client call and normalizes the result; none of them retry, and
// transport failures bubble up for the dispatcher to classify.
package payflows

import (
	"context"

	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/domain/payment"
)

type Flow interface {
	Method() string
	Execute(ctx context.Context, o *order.Order, intent payment.Intent) (payment.Outcome, error)
}

// ForIntent returns the flow matching the selected intent.
func ForIntent(client payment.ProviderClient, kind payment.IntentKind) Flow {
	switch kind {
	case payment.IntentDirectCharge:
		return &CreditCard{Client: client}
	case payment.IntentRecurringAgreement:
		return &Agreement{Client: client}
	default:
		return &Redirect{Client: client}
	}
}

// CreditCard captures synchronously against a stored card token. It is
// the only flow that can yield a final approved state; any other gateway
// state is a decline.
type CreditCard struct {
	Client payment.ProviderClient
}

func (f *CreditCard) Method() string { return payment.MethodCreditCard }

func (f *CreditCard) Execute(ctx context.Context, o *order.Order, intent payment.Intent) (payment.Outcome, error) {
	out, err := f.Client.Charge(ctx, o, intent.CardToken)
	if err != nil {
		return payment.Outcome{}, err
	}
	if out.State != payment.StateApproved {
		out.State = payment.StateRefused
	}
	return out, nil
}

// Agreement creates a recurring billing agreement; the payer completes it
// later through the approval link.
type Agreement struct {
	Client payment.ProviderClient
}

func (f *Agreement) Method() string { return payment.MethodPlanified }

func (f *Agreement) Execute(ctx context.Context, o *order.Order, intent payment.Intent) (payment.Outcome, error) {
	out, err := f.Client.CreateAgreement(ctx, o, intent.Plan)
	if err != nil {
		return payment.Outcome{}, err
	}
	out.State = payment.StateCreated
	return out, nil
}

// Redirect creates a one-time checkout session, the default flow.
type Redirect struct {
	Client payment.ProviderClient
}

func (f *Redirect) Method() string { return payment.MethodPaypal }

func (f *Redirect) Execute(ctx context.Context, o *order.Order, _ payment.Intent) (payment.Outcome, error) {
	out, err := f.Client.CreateCheckoutSession(ctx, o)
	if err != nil {
		return payment.Outcome{}, err
	}
	out.State = payment.StateCreated
	return out, nil
}
