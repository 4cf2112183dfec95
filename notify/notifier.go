package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"uptime-inspector/logging"
	"uptime-inspector/model"
)

// Actor is recorded on sweeps collected for an emailed report.
const Actor = "email_api"

// SweepCollector runs a sweep without storing it.
type SweepCollector interface {
	Collect(ctx context.Context, actor string) (model.Sweep, error)
}

type Notifier struct {
	collector SweepCollector
	transport Transport
	logger    *zap.Logger
	now       func() time.Time
}

func NewNotifier(collector SweepCollector, transport Transport, logger *zap.Logger) *Notifier {
	return &Notifier{
		collector: collector,
		transport: transport,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Notify inspects every system and mails the report. It returns how many
// recipients the report went to.
func (n *Notifier) Notify(ctx context.Context, recipients []string) (int, error) {
	addrs, err := ParseRecipients(recipients)
	if err != nil {
		return 0, err
	}
	sw, err := n.collector.Collect(ctx, Actor)
	if err != nil {
		return 0, fmt.Errorf("collect sweep: %w", err)
	}
	if err := n.SendSweep(ctx, addrs, sw); err != nil {
		return 0, err
	}
	return len(addrs), nil
}

// SendSweep mails the report of an already collected sweep.
func (n *Notifier) SendSweep(ctx context.Context, recipients []string, sw model.Sweep) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients: %w", model.ErrValidation)
	}
	if len(sw.Systems) == 0 {
		return model.ErrEmptySweep
	}
	body, err := Render(sw)
	if err != nil {
		return err
	}
	if err := n.transport.Send(ctx, recipients, Subject(n.now()), body); err != nil {
		n.logger.Error("report delivery failed", zap.Int("recipients", len(recipients)), zap.Error(err))
		if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	n.logger.Info("report sent", zap.Int("recipients", len(recipients)), zap.Int("systems", len(sw.Systems)))
	return nil
}

// ParseRecipients validates addresses and returns them in bare form.
func ParseRecipients(recipients []string) ([]string, error) {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("recipient %q: %w", r, model.ErrValidation)
		}
		out = append(out, addr.Address)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no recipients: %w", model.ErrValidation)
	}
	return out, nil
}
