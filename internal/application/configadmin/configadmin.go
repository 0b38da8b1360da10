// Package configadmin applies configuration updates coming from the
// admin surface and keeps an audit trail of them.
package configadmin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openstudio/payflow/internal/config"
	"github.com/openstudio/payflow/internal/domain/audit"
	"github.com/openstudio/payflow/internal/observability"
)

// forcedOff are settings the admin form may submit but that stay
// disabled regardless: the host platform owns confirmation mails and the
// per-method toggles in this deployment.
var forcedOff = []string{
	config.KeySendConfirmationMessage,
	config.KeySendRecursiveMessage,
	config.KeyMethodExpressCheckout,
	config.KeyMethodCreditCard,
	config.KeyMethodPlanified,
}

type Service struct {
	cfg   config.Store
	audit audit.Sink
	log   observability.Logger
}

func New(cfg config.Store, sink audit.Sink, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		cfg:   cfg,
		audit: sink,
		log:   tel.Logger().With(observability.F("service", "payment-config")),
	}
}

type UpdateInput struct {
	Values map[string]any
}

// Update bulk-saves configuration values, normalizing multi-values to a
// ";"-joined string, then re-applies the forced-off flags. The audit
// entry notes when the enabled flag flipped.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	wasEnabled, err := config.Enabled(ctx, s.cfg)
	if err != nil {
		return err
	}

	for key, value := range in.Values {
		if err := s.cfg.Set(ctx, key, flatten(value)); err != nil {
			return fmt.Errorf("configadmin: set %s: %w", key, err)
		}
	}
	for _, key := range forcedOff {
		if err := s.cfg.Set(ctx, key, config.FormatBool(false)); err != nil {
			return fmt.Errorf("configadmin: set %s: %w", key, err)
		}
	}

	nowEnabled, err := config.Enabled(ctx, s.cfg)
	if err != nil {
		return err
	}

	statusNote := ""
	if wasEnabled != nowEnabled {
		if nowEnabled {
			statusNote = " (payment activated)"
		} else {
			statusNote = " (payment deactivated)"
		}
	}
	entry := audit.Entry{
		State:    "configuration",
		Message:  "configuration updated" + statusNote,
		Severity: audit.SeverityInfo,
		LoggedAt: time.Now().UTC(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn("audit_append_failed", observability.F("error", err.Error()))
	}
	return nil
}

// Deactivate switches the payment method off, the module-deactivation
// hook of the original plugin.
func (s *Service) Deactivate(ctx context.Context) error {
	return config.SetEnabled(ctx, s.cfg, false)
}

func flatten(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return config.FormatBool(v)
	case float64:
		// JSON numbers; config values are integral.
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []string:
		return strings.Join(v, ";")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprintf("%v", v)
	}
}
