package paypal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstudio/payflow/internal/config"
	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/domain/payment"
	"github.com/openstudio/payflow/internal/infrastructure/memory"
	"github.com/openstudio/payflow/internal/infrastructure/paypal"
)

type gatewayFake struct {
	mux        *http.ServeMux
	tokenCalls int

	lastPaymentBody   map[string]any
	lastAgreementBody map[string]any
}

func newGatewayFake(t *testing.T) (*gatewayFake, *httptest.Server) {
	t.Helper()
	g := &gatewayFake{mux: http.NewServeMux()}

	g.mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		g.tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeBody(t, w, map[string]any{"access_token": "tok-123", "expires_in": 3600})
	})
	g.mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&g.lastPaymentBody))
		method, _ := g.lastPaymentBody["payer"].(map[string]any)["payment_method"].(string)
		if method == "credit_card" {
			writeBody(t, w, map[string]any{"id": "PAY-CC", "state": "approved"})
			return
		}
		writeBody(t, w, map[string]any{
			"id":    "PAY-EC",
			"state": "created",
			"links": []map[string]any{
				{"href": "https://gw/approve/PAY-EC", "rel": "approval_url", "method": "REDIRECT"},
			},
		})
	})
	g.mux.HandleFunc("/v1/payments/billing-agreements", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&g.lastAgreementBody))
		writeBody(t, w, map[string]any{
			"id":    "BA-1",
			"state": "created",
			"links": []map[string]any{
				{"href": "https://gw/approve/BA-1", "rel": "approval_url", "method": "REDIRECT"},
			},
		})
	})

	server := httptest.NewServer(g.mux)
	t.Cleanup(server.Close)
	return g, server
}

func writeBody(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func newTestClient(baseURL string) *paypal.Client {
	store := memory.NewConfigStore(map[string]string{
		config.KeyLogin:    "client-id",
		config.KeyPassword: "client-secret",
		config.KeySandbox:  "1",
	})
	return paypal.NewClient(paypal.Config{
		Store:     store,
		BaseURL:   baseURL,
		ReturnURL: "https://shop.example/checkout/return",
		CancelURL: "https://shop.example/checkout/cancel",
	}, nil)
}

func gatewayOrder() *order.Order {
	return &order.Order{ID: "o1", Ref: "ORD-1", Amount: 1050, Currency: "EUR", ItemCount: 1}
}

func TestChargeApproved(t *testing.T) {
	_, server := newGatewayFake(t)
	client := newTestClient(server.URL)

	out, err := client.Charge(context.Background(), gatewayOrder(), "card-9")
	require.NoError(t, err)
	assert.Equal(t, payment.StateApproved, out.State)
	assert.Equal(t, "PAY-CC", out.Reference)
}

func TestChargeSendsSaleWithCardToken(t *testing.T) {
	fake, server := newGatewayFake(t)
	client := newTestClient(server.URL)

	_, err := client.Charge(context.Background(), gatewayOrder(), "card-9")
	require.NoError(t, err)

	require.NotNil(t, fake.lastPaymentBody)
	assert.Equal(t, "sale", fake.lastPaymentBody["intent"])

	payer := fake.lastPaymentBody["payer"].(map[string]any)
	instruments := payer["funding_instruments"].([]any)
	require.Len(t, instruments, 1)
	cardToken := instruments[0].(map[string]any)["credit_card_token"].(map[string]any)
	assert.Equal(t, "card-9", cardToken["credit_card_id"])

	transactions := fake.lastPaymentBody["transactions"].([]any)
	require.Len(t, transactions, 1)
	amount := transactions[0].(map[string]any)["amount"].(map[string]any)
	assert.Equal(t, "10.50", amount["total"])
	assert.Equal(t, "EUR", amount["currency"])
}

func TestCreateCheckoutSession(t *testing.T) {
	fake, server := newGatewayFake(t)
	client := newTestClient(server.URL)

	out, err := client.CreateCheckoutSession(context.Background(), gatewayOrder())
	require.NoError(t, err)
	assert.Equal(t, payment.StateCreated, out.State)
	assert.Equal(t, "PAY-EC", out.Reference)
	assert.Equal(t, "https://gw/approve/PAY-EC", out.ApprovalLink)

	redirects := fake.lastPaymentBody["redirect_urls"].(map[string]any)
	assert.Equal(t, "https://shop.example/checkout/return", redirects["return_url"])
	assert.Equal(t, "https://shop.example/checkout/cancel", redirects["cancel_url"])
}

func TestCreateAgreement(t *testing.T) {
	fake, server := newGatewayFake(t)
	client := newTestClient(server.URL)
	plan := &payment.Plan{ID: "plan-1", Title: "monthly", Frequency: "MONTH", FrequencyInterval: 1, TotalCycles: 12}

	out, err := client.CreateAgreement(context.Background(), gatewayOrder(), plan)
	require.NoError(t, err)
	assert.Equal(t, payment.StateCreated, out.State)
	assert.Equal(t, "BA-1", out.Reference)
	assert.Equal(t, "https://gw/approve/BA-1", out.ApprovalLink)

	planBody := fake.lastAgreementBody["plan"].(map[string]any)
	assert.Equal(t, "MONTH", planBody["frequency"])
	assert.Equal(t, float64(12), planBody["total_cycles"])
	assert.NotEmpty(t, fake.lastAgreementBody["start_date"])
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	fake, server := newGatewayFake(t)
	client := newTestClient(server.URL)

	_, err := client.CreateCheckoutSession(context.Background(), gatewayOrder())
	require.NoError(t, err)
	_, err = client.Charge(context.Background(), gatewayOrder(), "card-9")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.tokenCalls)
}

func TestTransportFailureIsConnectionError(t *testing.T) {
	_, server := newGatewayFake(t)
	server.Close()
	client := newTestClient(server.URL)

	_, err := client.CreateCheckoutSession(context.Background(), gatewayOrder())
	require.Error(t, err)

	var ce *payment.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.True(t, strings.HasPrefix(ce.URL, server.URL))
	assert.NotEmpty(t, ce.Message)
}

func TestGatewayErrorStatusIsNotConnectionError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, map[string]any{"access_token": "tok-123", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"VALIDATION_ERROR"}`, http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newTestClient(server.URL)
	_, err := client.CreateCheckoutSession(context.Background(), gatewayOrder())
	require.Error(t, err)

	var ce *payment.ConnectionError
	assert.False(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "400")
}
