package config

import (
	"context"
	"strconv"
)

// Keys mirror the configuration values the gateway module stores. They
// are opaque strings to the Store; typed helpers below do the parsing.
const (
	KeyPaymentEnabled = "paypal_payment_enabled"
	KeyMinimumAmount  = "minimum_amount"
	KeyMaximumAmount  = "maximum_amount"
	KeyCartItemCount  = "cart_item_count"
	KeyAllowedIPList  = "allowed_ip_list"
	KeySandbox        = "sandbox"
	KeyLogin          = "login"
	KeyPassword       = "password"
	KeyMerchantID     = "merchant_id"

	KeySendConfirmationMessage = "send_payment_confirmation_message"
	KeySendRecursiveMessage    = "send_recursive_message"
	KeyMethodExpressCheckout   = "method_express_checkout"
	KeyMethodCreditCard        = "method_credit_card"
	KeyMethodPlanified         = "method_planified_payment"
)

// DefaultCartItemCount caps how many cart items this payment method
// accepts when no explicit limit is configured.
const DefaultCartItemCount = 9

// Store is an opaque key/value configuration source. Implementations must
// return the supplied default when the key is unset.
type Store interface {
	Get(ctx context.Context, key, def string) (string, error)
	Set(ctx context.Context, key, value string) error
}

func GetInt64(ctx context.Context, s Store, key string, def int64) (int64, error) {
	raw, err := s.Get(ctx, key, "")
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func GetBool(ctx context.Context, s Store, key string, def bool) (bool, error) {
	raw, err := s.Get(ctx, key, "")
	if err != nil {
		return false, err
	}
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, err
	}
	return v, nil
}

func Enabled(ctx context.Context, s Store) (bool, error) {
	return GetBool(ctx, s, KeyPaymentEnabled, false)
}

func SetEnabled(ctx context.Context, s Store, enabled bool) error {
	return s.Set(ctx, KeyPaymentEnabled, FormatBool(enabled))
}

func Sandbox(ctx context.Context, s Store) (bool, error) {
	return GetBool(ctx, s, KeySandbox, false)
}

// FormatBool stores booleans as "1"/"0", matching what the admin form
// historically submitted.
func FormatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// EnsureDefaults seeds first-install values. The minimum amount doubles
// as the installed marker: once it is set, seeding never runs again.
func EnsureDefaults(ctx context.Context, s Store) error {
	installed, err := s.Get(ctx, KeyMinimumAmount, "")
	if err != nil {
		return err
	}
	if installed != "" {
		return nil
	}
	defaults := map[string]string{
		KeyMinimumAmount:           "0",
		KeyMaximumAmount:           "0",
		KeySendConfirmationMessage: "1",
		KeyCartItemCount:           "999",
	}
	for key, value := range defaults {
		if err := s.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}
