// Package paypal is the REST adapter behind the payment.ProviderClient
// port. It deliberately stays thin: the gateway's wire protocol is an
// opaque dependency, and the rest of the system only sees normalized
// outcomes and *payment.ConnectionError on transport failure.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openstudio/payflow/internal/config"
	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/domain/payment"
	"github.com/openstudio/payflow/internal/observability"
)

const (
	liveBaseURL    = "https://api.paypal.com"
	sandboxBaseURL = "https://api.sandbox.paypal.com"

	tokenPath      = "/v1/oauth2/token"
	paymentsPath   = "/v1/payments/payment"
	agreementsPath = "/v1/payments/billing-agreements"
)

// Credentials is the gateway profile stored in configuration.
type Credentials struct {
	ClientID     string
	ClientSecret string
	MerchantID   string
	Sandbox      bool
}

func CredentialsFromConfig(ctx context.Context, store config.Store) (Credentials, error) {
	clientID, err := store.Get(ctx, config.KeyLogin, "")
	if err != nil {
		return Credentials{}, err
	}
	clientSecret, err := store.Get(ctx, config.KeyPassword, "")
	if err != nil {
		return Credentials{}, err
	}
	merchantID, err := store.Get(ctx, config.KeyMerchantID, "")
	if err != nil {
		return Credentials{}, err
	}
	sandbox, err := config.Sandbox(ctx, store)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		MerchantID:   merchantID,
		Sandbox:      sandbox,
	}, nil
}

type Config struct {
	Store config.Store
	// BaseURL overrides the live/sandbox endpoint, mainly for tests.
	BaseURL    string
	ReturnURL  string
	CancelURL  string
	HTTPClient *http.Client
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config, tel observability.Observability) *Client {
	if tel == nil {
		tel = observability.Nop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        tel.Logger().With(observability.F("component", "paypal_client")),
		reqCounter: tel.Metrics().Counter(observability.MProviderRequests),
		durHist:    tel.Metrics().Histogram(observability.MProviderRequestDuration),
	}
}

// Charge captures synchronously against a stored card token.
func (c *Client) Charge(ctx context.Context, o *order.Order, cardToken string) (payment.Outcome, error) {
	body := paymentRequest{
		Intent: "sale",
		Payer: payerPayload{
			PaymentMethod: "credit_card",
			FundingInstruments: []fundingInstrumentPayload{
				{CreditCardToken: &creditCardTokenPayload{CreditCardID: cardToken}},
			},
		},
		Transactions: transactionsFor(o),
	}
	var resp paymentResponse
	if err := c.post(ctx, "charge", paymentsPath, body, &resp); err != nil {
		return payment.Outcome{}, err
	}
	return payment.Outcome{
		State:        payment.State(resp.State),
		Reference:    resp.ID,
		ApprovalLink: resp.link("approval_url"),
	}, nil
}

// CreateCheckoutSession starts a one-time redirect payment.
func (c *Client) CreateCheckoutSession(ctx context.Context, o *order.Order) (payment.Outcome, error) {
	body := paymentRequest{
		Intent:       "sale",
		Payer:        payerPayload{PaymentMethod: "paypal"},
		Transactions: transactionsFor(o),
		RedirectURLs: &redirectURLsPayload{
			ReturnURL: c.cfg.ReturnURL,
			CancelURL: c.cfg.CancelURL,
		},
	}
	var resp paymentResponse
	if err := c.post(ctx, "checkout_session", paymentsPath, body, &resp); err != nil {
		return payment.Outcome{}, err
	}
	return payment.Outcome{
		State:        payment.State(resp.State),
		Reference:    resp.ID,
		ApprovalLink: resp.link("approval_url"),
	}, nil
}

// CreateAgreement starts a recurring billing agreement for a plan.
func (c *Client) CreateAgreement(ctx context.Context, o *order.Order, plan *payment.Plan) (payment.Outcome, error) {
	body := agreementRequest{
		Name:        plan.Title,
		Description: fmt.Sprintf("order %s", o.Ref),
		StartDate:   time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
		Plan: agreementPlanPayload{
			Title:             plan.Title,
			Frequency:         plan.Frequency,
			FrequencyInterval: plan.FrequencyInterval,
			TotalCycles:       plan.TotalCycles,
			Amount:            amountFor(o),
		},
		Payer: payerPayload{PaymentMethod: "paypal"},
	}
	var resp agreementResponse
	if err := c.post(ctx, "agreement", agreementsPath, body, &resp); err != nil {
		return payment.Outcome{}, err
	}
	return payment.Outcome{
		State:        payment.State(resp.State),
		Reference:    resp.ID,
		ApprovalLink: resp.link("approval_url"),
	}, nil
}

func (c *Client) post(ctx context.Context, api, path string, payload, out any) (err error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		c.reqCounter.Add(1,
			observability.L("api", api),
			observability.L("outcome", outcome),
		)
		c.durHist.Observe(time.Since(start).Seconds(), observability.L("api", api))
	}()

	creds, err := CredentialsFromConfig(ctx, c.cfg.Store)
	if err != nil {
		return err
	}
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := c.baseURL(creds) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &payment.ConnectionError{URL: url, Payload: string(raw), Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &payment.ConnectionError{URL: url, Payload: string(raw), Message: err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paypal: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("paypal: decode %s response: %w", path, err)
		}
	}
	return nil
}

// accessToken returns a cached client-credentials token, refreshing it
// shortly before expiry.
func (c *Client) accessToken(ctx context.Context, creds Credentials) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.token, nil
	}

	form := "grant_type=client_credentials"
	url := c.baseURL(creds) + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &payment.ConnectionError{URL: url, Payload: form, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &payment.ConnectionError{URL: url, Payload: form, Message: err.Error(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal: token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("paypal: decode token response: %w", err)
	}
	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) baseURL(creds Credentials) string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	if creds.Sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

func transactionsFor(o *order.Order) []transactionPayload {
	return []transactionPayload{
		{
			Amount:        amountFor(o),
			Description:   fmt.Sprintf("order %s", o.Ref),
			InvoiceNumber: o.Ref,
		},
	}
}

func amountFor(o *order.Order) amountPayload {
	currency := o.Currency
	if currency == "" {
		currency = "EUR"
	}
	return amountPayload{Total: formatAmount(o.Amount), Currency: currency}
}

// formatAmount renders minor units as the decimal string the gateway
// expects, e.g. 1050 -> "10.50".
func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

type amountPayload struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type transactionPayload struct {
	Amount        amountPayload `json:"amount"`
	Description   string        `json:"description,omitempty"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
}

type creditCardTokenPayload struct {
	CreditCardID string `json:"credit_card_id"`
}

type fundingInstrumentPayload struct {
	CreditCardToken *creditCardTokenPayload `json:"credit_card_token,omitempty"`
}

type payerPayload struct {
	PaymentMethod      string                     `json:"payment_method"`
	FundingInstruments []fundingInstrumentPayload `json:"funding_instruments,omitempty"`
}

type redirectURLsPayload struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type paymentRequest struct {
	Intent       string               `json:"intent"`
	Payer        payerPayload         `json:"payer"`
	Transactions []transactionPayload `json:"transactions"`
	RedirectURLs *redirectURLsPayload `json:"redirect_urls,omitempty"`
}

type linkPayload struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paymentResponse struct {
	ID    string        `json:"id"`
	State string        `json:"state"`
	Links []linkPayload `json:"links"`
}

func (r paymentResponse) link(rel string) string {
	for _, l := range r.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

type agreementPlanPayload struct {
	Title             string        `json:"title"`
	Frequency         string        `json:"frequency"`
	FrequencyInterval int           `json:"frequency_interval"`
	TotalCycles       int           `json:"total_cycles"`
	Amount            amountPayload `json:"amount"`
}

type agreementRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	StartDate   string               `json:"start_date"`
	Plan        agreementPlanPayload `json:"plan"`
	Payer       payerPayload         `json:"payer"`
}

type agreementResponse struct {
	ID    string        `json:"id"`
	State string        `json:"state"`
	Links []linkPayload `json:"links"`
}

func (r agreementResponse) link(rel string) string {
	for _, l := range r.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}
