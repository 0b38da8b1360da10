package eligibility_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstudio/payflow/internal/application/eligibility"
	"github.com/openstudio/payflow/internal/config"
	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/infrastructure/memory"
)

func newChecker(values map[string]string) (*eligibility.Checker, *memory.OrderRepository) {
	orders := memory.NewOrderRepository()
	return eligibility.NewChecker(memory.NewConfigStore(values), orders, nil), orders
}

func TestCheckThresholds(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		in     eligibility.Input
		want   bool
	}{
		{
			name:   "inside bounds",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyMinimumAmount: "10", config.KeyMaximumAmount: "100", config.KeyCartItemCount: "9"},
			in:     eligibility.Input{Total: 50, ItemCount: 3},
			want:   true,
		},
		{
			name:   "minimum bound is inclusive",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyMinimumAmount: "10", config.KeyMaximumAmount: "100"},
			in:     eligibility.Input{Total: 10, ItemCount: 1},
			want:   true,
		},
		{
			name:   "maximum bound is inclusive",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyMinimumAmount: "10", config.KeyMaximumAmount: "100"},
			in:     eligibility.Input{Total: 100, ItemCount: 1},
			want:   true,
		},
		{
			name:   "below minimum",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyMinimumAmount: "10"},
			in:     eligibility.Input{Total: 9, ItemCount: 1},
			want:   false,
		},
		{
			name:   "above maximum",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyMaximumAmount: "100"},
			in:     eligibility.Input{Total: 101, ItemCount: 1},
			want:   false,
		},
		{
			name:   "zero thresholds mean unbounded",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyMinimumAmount: "0", config.KeyMaximumAmount: "0"},
			in:     eligibility.Input{Total: 999999, ItemCount: 1},
			want:   true,
		},
		{
			name:   "zero total never eligible",
			values: map[string]string{config.KeyPaymentEnabled: "1"},
			in:     eligibility.Input{Total: 0, ItemCount: 1},
			want:   false,
		},
		{
			name:   "negative total never eligible",
			values: map[string]string{config.KeyPaymentEnabled: "1"},
			in:     eligibility.Input{Total: -5, ItemCount: 1},
			want:   false,
		},
		{
			name:   "disabled flag wins over everything",
			values: map[string]string{config.KeyPaymentEnabled: "0", config.KeyMinimumAmount: "10", config.KeyMaximumAmount: "100"},
			in:     eligibility.Input{Total: 50, ItemCount: 1},
			want:   false,
		},
		{
			name:   "unset flag means disabled",
			values: map[string]string{},
			in:     eligibility.Input{Total: 50, ItemCount: 1},
			want:   false,
		},
		{
			name:   "too many cart items",
			values: map[string]string{config.KeyPaymentEnabled: "1", config.KeyCartItemCount: "9"},
			in:     eligibility.Input{Total: 50, ItemCount: 10},
			want:   false,
		},
		{
			name:   "default item cap applies when unset",
			values: map[string]string{config.KeyPaymentEnabled: "1"},
			in:     eligibility.Input{Total: 50, ItemCount: 10},
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, _ := newChecker(tt.values)
			got, err := checker.Check(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckSandboxAllowList(t *testing.T) {
	values := map[string]string{
		config.KeyPaymentEnabled: "1",
		config.KeySandbox:        "1",
		config.KeyAllowedIPList:  "10.0.0.1\n  192.168.1.7  \n172.16.0.3",
	}

	t.Run("listed ip with surrounding whitespace passes", func(t *testing.T) {
		checker, _ := newChecker(values)
		got, err := checker.Check(context.Background(), eligibility.Input{Total: 50, ItemCount: 1, ClientIP: "192.168.1.7"})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("unlisted ip is rejected", func(t *testing.T) {
		checker, _ := newChecker(values)
		got, err := checker.Check(context.Background(), eligibility.Input{Total: 50, ItemCount: 1, ClientIP: "203.0.113.9"})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("allow list is ignored outside sandbox", func(t *testing.T) {
		live := map[string]string{config.KeyPaymentEnabled: "1", config.KeyAllowedIPList: "10.0.0.1"}
		checker, _ := newChecker(live)
		got, err := checker.Check(context.Background(), eligibility.Input{Total: 50, ItemCount: 1, ClientIP: "203.0.113.9"})
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestInputFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("token resolves the stored order", func(t *testing.T) {
		checker, orders := newChecker(nil)
		require.NoError(t, orders.Insert(ctx, &order.Order{ID: "o1", LinkToken: "tok-1", Amount: 7700, ItemCount: 4}))

		in, err := checker.InputFrom(ctx, eligibility.CheckoutContext{OrderToken: "tok-1"}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(7700), in.Total)
		assert.Equal(t, 4, in.ItemCount)
		assert.Equal(t, "10.0.0.1", in.ClientIP)
	})

	t.Run("unknown token", func(t *testing.T) {
		checker, _ := newChecker(nil)
		_, err := checker.InputFrom(ctx, eligibility.CheckoutContext{OrderToken: "nope"}, "")
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("cart snapshot without token", func(t *testing.T) {
		checker, _ := newChecker(nil)
		in, err := checker.InputFrom(ctx, eligibility.CheckoutContext{Cart: &eligibility.CartSnapshot{Total: 1200, ItemCount: 2}}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(1200), in.Total)
		assert.Equal(t, 2, in.ItemCount)
	})
}
