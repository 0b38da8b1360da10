package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/openstudio/payflow/internal/application/configadmin"
	"github.com/openstudio/payflow/internal/application/dispatch"
	"github.com/openstudio/payflow/internal/application/eligibility"
	"github.com/openstudio/payflow/internal/domain/audit"
	domainorder "github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/domain/payment"
)

type Handler struct {
	dispatcher  *dispatch.UseCase
	eligibility *eligibility.Checker
	admin       *configadmin.Service
	auditLog    audit.Sink
}

func NewHandler(dispatcher *dispatch.UseCase, checker *eligibility.Checker, admin *configadmin.Service, auditLog audit.Sink) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		eligibility: checker,
		admin:       admin,
		auditLog:    auditLog,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/checkout/pay", h.method(http.MethodPost, h.handlePay))
	mux.HandleFunc("/checkout/eligibility", h.method(http.MethodGet, h.handleEligibility))
	mux.HandleFunc("/admin/config", h.method(http.MethodPost, h.handleUpdateConfig))
	mux.HandleFunc("/admin/log", h.method(http.MethodGet, h.handleAuditLog))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type payRequest struct {
	OrderID string `json:"order_id"`
}

type payResponse struct {
	OrderID     string `json:"order_id"`
	Method      string `json:"method"`
	State       string `json:"state"`
	Reference   string `json:"reference,omitempty"`
	RedirectURL string `json:"redirect_url"`
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.dispatcher.Execute(r.Context(), dispatch.Input{OrderID: req.OrderID})
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payResponse{
		OrderID:     req.OrderID,
		Method:      result.Method,
		State:       string(result.Outcome.State),
		Reference:   result.Outcome.Reference,
		RedirectURL: result.RedirectURL,
	})
}

type eligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cc := eligibility.CheckoutContext{OrderToken: q.Get("token")}
	if cc.OrderToken == "" {
		total, err := strconv.ParseInt(q.Get("total"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("total must be an integer amount in minor units"))
			return
		}
		items, err := strconv.Atoi(q.Get("items"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("items must be an integer"))
			return
		}
		cc.Cart = &eligibility.CartSnapshot{Total: total, ItemCount: items}
	}

	in, err := h.eligibility.InputFrom(r.Context(), cc, clientIP(r))
	if err != nil {
		if errors.Is(err, domainorder.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	eligible, err := h.eligibility.Check(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, eligibilityResponse{Eligible: eligible})
}

type updateConfigRequest struct {
	Values map[string]any `json:"values"`
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("values are required"))
		return
	}
	if err := h.admin.Update(r.Context(), configadmin.UpdateInput{Values: req.Values}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type auditEntryResponse struct {
	OrderID    string `json:"order_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	State      string `json:"state,omitempty"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	LoggedAt   string `json:"logged_at"`
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = v
	}
	entries, err := h.auditLog.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			OrderID:    e.OrderID,
			CustomerID: e.CustomerID,
			State:      e.State,
			Message:    e.Message,
			Severity:   string(e.Severity),
			LoggedAt:   e.LoggedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) method(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handler(w, r)
	}
}

func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainorder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainorder.ErrInvalidTotal):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, payment.ErrAlreadyCaptured):
		writeError(w, http.StatusConflict, err)
	default:
		var derr *payment.Error
		if errors.As(err, &derr) {
			switch derr.Kind {
			case payment.KindRefused:
				writeError(w, http.StatusPaymentRequired, err)
			case payment.KindConnection:
				writeError(w, http.StatusBadGateway, err)
			default:
				writeError(w, http.StatusInternalServerError, err)
			}
			return
		}
		writeError(w, http.StatusInternalServerError, err)
	}
}

// clientIP prefers the first forwarded address, matching how the host
// platform sees storefront traffic behind its proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	_ = ctx
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
