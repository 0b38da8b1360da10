package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstudio/payflow/internal/application/configadmin"
	"github.com/openstudio/payflow/internal/application/dispatch"
	"github.com/openstudio/payflow/internal/application/eligibility"
	"github.com/openstudio/payflow/internal/config"
	"github.com/openstudio/payflow/internal/domain/audit"
	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/domain/payment"
	"github.com/openstudio/payflow/internal/infrastructure/httpapi"
	"github.com/openstudio/payflow/internal/infrastructure/memory"
)

type gatewayStub struct {
	chargeOut  payment.Outcome
	chargeErr  error
	sessionOut payment.Outcome
	sessionErr error
}

func (g *gatewayStub) Charge(ctx context.Context, o *order.Order, cardToken string) (payment.Outcome, error) {
	return g.chargeOut, g.chargeErr
}

func (g *gatewayStub) CreateAgreement(ctx context.Context, o *order.Order, plan *payment.Plan) (payment.Outcome, error) {
	return payment.Outcome{}, nil
}

func (g *gatewayStub) CreateCheckoutSession(ctx context.Context, o *order.Order) (payment.Outcome, error) {
	return g.sessionOut, g.sessionErr
}

type apiFixture struct {
	router   http.Handler
	orders   *memory.OrderRepository
	cartRefs *memory.CartRefRepository
	cfg      *memory.ConfigStore
	audit    *memory.AuditSink
}

func newAPIFixture(t *testing.T, gateway *gatewayStub, cfgValues map[string]string) *apiFixture {
	t.Helper()
	orders := memory.NewOrderRepository()
	cartRefs := memory.NewCartRefRepository()
	cfg := memory.NewConfigStore(cfgValues)
	sink := memory.NewAuditSink()

	dispatcher := dispatch.New(dispatch.Deps{
		Orders:   orders,
		CartRefs: cartRefs,
		Plans:    memory.NewPlanRepository(),
		Client:   gateway,
		Outcomes: memory.NewOutcomeStore(),
		Audit:    sink,
		Notifier: memory.NewStatusRecorder(),
		Tx:       memory.NewTxRunner(),
	}, nil)
	checker := eligibility.NewChecker(cfg, orders, nil)
	admin := configadmin.New(cfg, sink, nil)

	handler := httpapi.NewHandler(dispatcher, checker, admin, sink)
	return &apiFixture{
		router:   handler.Router(),
		orders:   orders,
		cartRefs: cartRefs,
		cfg:      cfg,
		audit:    sink,
	}
}

func (f *apiFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func seedPending(t *testing.T, f *apiFixture) {
	t.Helper()
	require.NoError(t, f.orders.Insert(context.Background(), &order.Order{
		ID:         "o1",
		Ref:        "ORD-1",
		CustomerID: "cust-1",
		CartID:     "cart-1",
		Amount:     4200,
		Currency:   "EUR",
		ItemCount:  2,
		Status:     order.StatusPending,
	}))
}

func TestPayApproved(t *testing.T) {
	f := newAPIFixture(t, &gatewayStub{chargeOut: payment.Outcome{State: payment.StateApproved, Reference: "PAY-1"}}, nil)
	seedPending(t, f)
	f.cartRefs.Put(payment.CartPaymentRef{CartID: "cart-1", CreditCardID: "card-9"})

	rec := f.do(t, http.MethodPost, "/checkout/pay", `{"order_id":"o1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "credit_card", resp["method"])
	assert.Equal(t, "approved", resp["state"])
	assert.Equal(t, "PAY-1", resp["reference"])
	assert.Equal(t, "/order/placed/o1", resp["redirect_url"])
}

func TestPayErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		gateway    *gatewayStub
		seed       func(t *testing.T, f *apiFixture)
		body       string
		wantStatus int
	}{
		{
			name:       "unknown order",
			gateway:    &gatewayStub{},
			seed:       func(t *testing.T, f *apiFixture) {},
			body:       `{"order_id":"missing"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:    "refusal",
			gateway: &gatewayStub{chargeOut: payment.Outcome{State: payment.StateRefused}},
			seed: func(t *testing.T, f *apiFixture) {
				seedPending(t, f)
				f.cartRefs.Put(payment.CartPaymentRef{CartID: "cart-1", CreditCardID: "card-9"})
			},
			body:       `{"order_id":"o1"}`,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:    "gateway unreachable",
			gateway: &gatewayStub{sessionErr: &payment.ConnectionError{URL: "https://gw", Message: "down"}},
			seed: func(t *testing.T, f *apiFixture) {
				seedPending(t, f)
			},
			body:       `{"order_id":"o1"}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:    "non-positive total",
			gateway: &gatewayStub{},
			seed: func(t *testing.T, f *apiFixture) {
				require.NoError(t, f.orders.Insert(context.Background(), &order.Order{ID: "o1", CartID: "cart-1", Amount: 0, Status: order.StatusPending}))
			},
			body:       `{"order_id":"o1"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed body",
			gateway:    &gatewayStub{},
			seed:       func(t *testing.T, f *apiFixture) {},
			body:       `{"order_id":`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, tt.gateway, nil)
			tt.seed(t, f)
			rec := f.do(t, http.MethodPost, "/checkout/pay", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestPayAlreadyCapturedConflict(t *testing.T) {
	f := newAPIFixture(t, &gatewayStub{chargeOut: payment.Outcome{State: payment.StateApproved, Reference: "PAY-1"}}, nil)
	seedPending(t, f)
	f.cartRefs.Put(payment.CartPaymentRef{CartID: "cart-1", CreditCardID: "card-9"})

	rec := f.do(t, http.MethodPost, "/checkout/pay", `{"order_id":"o1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/checkout/pay", `{"order_id":"o1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEligibilityEndpoint(t *testing.T) {
	values := map[string]string{
		config.KeyPaymentEnabled: "1",
		config.KeyMinimumAmount:  "10",
		config.KeyMaximumAmount:  "100",
	}

	t.Run("cart query inside bounds", func(t *testing.T) {
		f := newAPIFixture(t, &gatewayStub{}, values)
		rec := f.do(t, http.MethodGet, "/checkout/eligibility?total=50&items=3", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"eligible":true}`, rec.Body.String())
	})

	t.Run("cart query above maximum", func(t *testing.T) {
		f := newAPIFixture(t, &gatewayStub{}, values)
		rec := f.do(t, http.MethodGet, "/checkout/eligibility?total=101&items=3", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"eligible":false}`, rec.Body.String())
	})

	t.Run("token resolves stored order", func(t *testing.T) {
		f := newAPIFixture(t, &gatewayStub{}, values)
		require.NoError(t, f.orders.Insert(context.Background(), &order.Order{ID: "o1", LinkToken: "tok-1", Amount: 50, ItemCount: 2}))
		rec := f.do(t, http.MethodGet, "/checkout/eligibility?token=tok-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"eligible":true}`, rec.Body.String())
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newAPIFixture(t, &gatewayStub{}, values)
		rec := f.do(t, http.MethodGet, "/checkout/eligibility?token=nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing cart fields", func(t *testing.T) {
		f := newAPIFixture(t, &gatewayStub{}, values)
		rec := f.do(t, http.MethodGet, "/checkout/eligibility", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminConfigEndpoint(t *testing.T) {
	f := newAPIFixture(t, &gatewayStub{}, nil)

	rec := f.do(t, http.MethodPost, "/admin/config", `{"values":{"paypal_payment_enabled":"1","minimum_amount":"1000"}}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := f.cfg.Get(context.Background(), config.KeyMinimumAmount, "")
	require.NoError(t, err)
	assert.Equal(t, "1000", got)

	rec = f.do(t, http.MethodPost, "/admin/config", `{"values":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLogEndpoint(t *testing.T) {
	f := newAPIFixture(t, &gatewayStub{}, nil)
	ctx := context.Background()
	require.NoError(t, f.audit.Append(ctx, audit.Entry{Message: "first", Severity: audit.SeverityInfo}))
	require.NoError(t, f.audit.Append(ctx, audit.Entry{OrderID: "o1", Message: "second", Severity: audit.SeverityCritical}))

	rec := f.do(t, http.MethodGet, "/admin/log?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0]["message"])
	assert.Equal(t, "critical", entries[0]["severity"])

	rec = f.do(t, http.MethodGet, "/admin/log?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t, &gatewayStub{}, nil)
	rec := f.do(t, http.MethodGet, "/checkout/pay", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, &gatewayStub{}, nil)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
