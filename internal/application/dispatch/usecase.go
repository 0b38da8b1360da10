package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openstudio/payflow/internal/domain/audit"
	"github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/domain/payment"
	"github.com/openstudio/payflow/internal/observability"
	"github.com/openstudio/payflow/internal/observability/logctx"
	"github.com/openstudio/payflow/internal/payflows"
)

const (
	dispatchService = "payment-dispatch"
	useCaseDispatch = "payment.dispatch"
	spanDispatch    = "UC.Dispatch"
)

type Input struct {
	OrderID string
}

type Result struct {
	Method      string
	Outcome     payment.Outcome
	RedirectURL string
}

// Deps are the collaborators the dispatcher drives. All of them are
// ports; nothing here knows about sqlite, rabbit or the gateway wire.
type Deps struct {
	Orders   order.Repository
	CartRefs payment.CartRefRepository
	Plans    payment.PlanRepository
	Client   payment.ProviderClient
	Outcomes payment.OutcomeStore
	Audit    audit.Sink
	Notifier order.StatusNotifier
	Tx       TxRunner
	// PlacedURL builds the storefront URL a synchronously captured order
	// redirects to. Defaults to the bare path when nil.
	PlacedURL func(o *order.Order) string
}

type UseCase struct {
	orders    order.Repository
	cartRefs  payment.CartRefRepository
	plans     payment.PlanRepository
	client    payment.ProviderClient
	outcomes  payment.OutcomeStore
	audit     audit.Sink
	notifier  order.StatusNotifier
	tx        TxRunner
	placedURL func(o *order.Order) string

	tel        observability.Observability
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

func New(deps Deps, tel observability.Observability) *UseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	placedURL := deps.PlacedURL
	if placedURL == nil {
		placedURL = func(o *order.Order) string { return "/order/placed/" + o.ID }
	}
	return &UseCase{
		orders:     deps.Orders,
		cartRefs:   deps.CartRefs,
		plans:      deps.Plans,
		client:     deps.Client,
		outcomes:   deps.Outcomes,
		audit:      deps.Audit,
		notifier:   deps.Notifier,
		tx:         deps.Tx,
		placedURL:  placedURL,
		tel:        tel,
		log:        tel.Logger().With(observability.F("service", dispatchService)),
		reqCounter: tel.Metrics().Counter(observability.MDispatchRequests),
		durHist:    tel.Metrics().Histogram(observability.MDispatchDuration),
	}
}

// Execute selects exactly one payment flow for the order, runs it inside
// a transaction and classifies the result. Every attempt, committed or
// rolled back, leaves one audit entry.
func (uc *UseCase) Execute(ctx context.Context, cmd Input) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseDispatch),
		observability.F("order_id", cmd.OrderID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanDispatch,
		attribute.String("use_case", useCaseDispatch),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	method := payment.MethodPaypal

	defer func() {
		span.SetAttributes(attribute.String("payment.method", method))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("method", method),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(latency, observability.L("method", method))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("method", method),
			observability.F("latency_seconds", latency),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, errors.New("dispatch: order id is required")
	}

	o, err := uc.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		outcome, statusText = "error", "ORDER_LOOKUP_FAILED"
		return nil, err
	}
	if o.Amount <= 0 {
		outcome, statusText = "error", "TOTAL_INVALID"
		return nil, order.ErrInvalidTotal
	}

	ref, err := uc.cartRefs.FindByCartID(ctx, o.CartID)
	if err != nil && !errors.Is(err, payment.ErrCartRefNotFound) {
		outcome, statusText = "error", "CART_REF_LOOKUP_FAILED"
		return nil, err
	}

	intent, err := payment.SelectIntent(ctx, ref, uc.plans)
	if err != nil {
		outcome, statusText = "error", "INTENT_SELECTION_FAILED"
		return nil, err
	}
	method = intent.Kind.Method()

	prior, err := uc.outcomes.LatestApproved(ctx, o.ID)
	if err != nil {
		outcome, statusText = "error", "OUTCOME_LOOKUP_FAILED"
		return nil, err
	}
	if prior != nil {
		outcome, statusText = "error", "ALREADY_CAPTURED"
		uc.appendAudit(ctx, logger, audit.Entry{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			State:      "already_captured",
			Message:    fmt.Sprintf("dispatch aborted : order already captured with reference %s", prior.Reference),
			Severity:   audit.SeverityCritical,
		})
		return nil, fmt.Errorf("%w: reference %s", payment.ErrAlreadyCaptured, prior.Reference)
	}

	nonce := uuid.NewString()
	flow := payflows.ForIntent(uc.client, intent.Kind)

	var res *Result
	txErr := uc.tx.WithinTx(ctx, func(txCtx context.Context) error {
		out, flowErr := flow.Execute(txCtx, o, intent)
		if flowErr != nil {
			return flowErr
		}
		if out.State == payment.StateRefused {
			return &payment.Error{Kind: payment.KindRefused, Method: method, OrderID: o.ID, Err: payment.ErrRefused}
		}

		rec := payment.OutcomeRecord{
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			Method:       method,
			State:        out.State,
			Reference:    out.Reference,
			ApprovalLink: out.ApprovalLink,
			Nonce:        nonce,
			CreatedAt:    time.Now().UTC(),
		}
		if err := uc.outcomes.Append(txCtx, rec); err != nil {
			return err
		}

		res = &Result{Method: method, Outcome: out}
		if out.State == payment.StateApproved {
			o.MarkPaid()
			if err := uc.orders.Update(txCtx, o); err != nil {
				return err
			}
			res.RedirectURL = uc.placedURL(o)
		} else {
			res.RedirectURL = out.ApprovalLink
		}
		return nil
	})
	if txErr != nil {
		derr := classify(txErr, method, o.ID)
		uc.auditFailure(ctx, logger, o, method, derr)
		outcome = "error"
		statusText = strings.ToUpper(derr.Kind.String())
		return nil, derr
	}

	if res.Outcome.State == payment.StateApproved {
		// Status transition is advisory: the dispatch is already
		// committed, so a publish failure is logged, not surfaced.
		if nerr := uc.notifier.NotifyStatus(ctx, o, order.StatusPaid); nerr != nil {
			logger.Warn("status_notify_failed",
				observability.F("order_id", o.ID),
				observability.F("error", nerr.Error()),
			)
		}
		uc.appendAudit(ctx, logger, audit.Entry{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			State:      string(payment.StateApproved),
			Message:    fmt.Sprintf("order paid with success with method : %s", method),
			Severity:   audit.SeverityInfo,
		})
	} else {
		statusText = "CREATED"
		uc.appendAudit(ctx, logger, audit.Entry{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			State:      string(payment.StateCreated),
			Message:    fmt.Sprintf("order created with success with method : %s", method),
			Severity:   audit.SeverityInfo,
		})
	}
	return res, nil
}

// TransactionRef returns the gateway reference recorded for an order, or
// an empty string when the order never reached the gateway.
func (uc *UseCase) TransactionRef(ctx context.Context, orderID string) (string, error) {
	return uc.outcomes.TransactionRef(ctx, orderID)
}

func classify(err error, method, orderID string) *payment.Error {
	var pe *payment.Error
	if errors.As(err, &pe) {
		return pe
	}
	var ce *payment.ConnectionError
	if errors.As(err, &ce) {
		return &payment.Error{Kind: payment.KindConnection, Method: method, OrderID: orderID, Err: ce}
	}
	return &payment.Error{Kind: payment.KindUnexpected, Method: method, OrderID: orderID, Err: err}
}

func (uc *UseCase) auditFailure(ctx context.Context, logger observability.Logger, o *order.Order, method string, derr *payment.Error) {
	message := derr.Err.Error()
	if derr.Kind == payment.KindRefused {
		message = fmt.Sprintf("order failed with method : %s", method)
	}
	uc.appendAudit(ctx, logger, audit.Entry{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		State:      derr.Kind.String(),
		Message:    message,
		Severity:   audit.SeverityCritical,
	})
}

func (uc *UseCase) appendAudit(ctx context.Context, logger observability.Logger, e audit.Entry) {
	e.LoggedAt = time.Now().UTC()
	if err := uc.audit.Append(ctx, e); err != nil {
		logger.Warn("audit_append_failed",
			observability.F("order_id", e.OrderID),
			observability.F("error", err.Error()),
		)
	}
}
