package payment

import (
	"context"
	"errors"
)

// Method names follow the gateway's vocabulary for checkout methods.
const (
	MethodPaypal     = "paypal"
	MethodCreditCard = "credit_card"
	MethodPlanified  = "planified_payment"
)

var (
	ErrCartRefNotFound = errors.New("payment: cart payment ref not found")
	ErrPlanNotFound    = errors.New("payment: planified payment not found")
)

// CartPaymentRef is the payment metadata stored against a cart: a saved
// credit card token, a planified (recurring) payment id, or neither.
type CartPaymentRef struct {
	CartID       string
	CreditCardID string
	PlanID       string
}

type IntentKind int

const (
	IntentOneTimeRedirect IntentKind = iota
	IntentDirectCharge
	IntentRecurringAgreement
)

func (k IntentKind) Method() string {
	switch k {
	case IntentDirectCharge:
		return MethodCreditCard
	case IntentRecurringAgreement:
		return MethodPlanified
	default:
		return MethodPaypal
	}
}

// Intent is a tagged union: exactly one variant is selected per dispatch,
// and only the fields of that variant are populated.
type Intent struct {
	Kind      IntentKind
	CardToken string // IntentDirectCharge
	Plan      *Plan  // IntentRecurringAgreement
}

// Plan describes a planified (recurring) payment definition.
type Plan struct {
	ID                string
	Title             string
	Frequency         string // DAY, WEEK, MONTH or YEAR
	FrequencyInterval int
	TotalCycles       int
}

type PlanRepository interface {
	FindByID(ctx context.Context, id string) (*Plan, error)
}

type CartRefRepository interface {
	FindByCartID(ctx context.Context, cartID string) (*CartPaymentRef, error)
}

// SelectIntent picks the flow for a cart ref. Priority order, first match
// wins: a stored card token selects the direct charge, a plan reference
// that resolves to an existing plan selects the recurring agreement, and
// anything else (including an unresolvable plan id) falls back to the
// one-time redirect.
func SelectIntent(ctx context.Context, ref *CartPaymentRef, plans PlanRepository) (Intent, error) {
	if ref != nil && ref.CreditCardID != "" {
		return Intent{Kind: IntentDirectCharge, CardToken: ref.CreditCardID}, nil
	}
	if ref != nil && ref.PlanID != "" && plans != nil {
		plan, err := plans.FindByID(ctx, ref.PlanID)
		switch {
		case err == nil && plan != nil:
			return Intent{Kind: IntentRecurringAgreement, Plan: plan}, nil
		case err != nil && !errors.Is(err, ErrPlanNotFound):
			return Intent{}, err
		}
	}
	return Intent{Kind: IntentOneTimeRedirect}, nil
}
