package service

import (
	"context"
	"encoding/json"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/subgate/internal/clock"
	"github.com/smallbiznis/subgate/internal/config"
	"github.com/smallbiznis/subgate/internal/observability/metrics"
	"github.com/smallbiznis/subgate/internal/webhook/domain"
)

// ServiceParam wires service dependencies.
type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

// Service verifies and dispatches vendor webhook deliveries. Handlers only
// observe: the vendor remains the system of record, so reacting to an event
// never mutates local state.
type Service struct {
	log     *zap.Logger
	secret  string
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:     p.Log,
		secret:  p.Config.Billing.WebhookSecret,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

type wireEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (s *Service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (domain.Event, error) {
	if s.secret != "" {
		if err := verifySignature(payload, signatureHeader, s.secret, defaultTolerance, s.clock.Now()); err != nil {
			s.log.Warn("webhook signature rejected", zap.Error(err))
			return domain.Event{}, err
		}
	}

	var wire wireEvent
	if err := json.Unmarshal(payload, &wire); err != nil || wire.Type == "" {
		return domain.Event{}, domain.ErrInvalidPayload
	}

	event := domain.Event{
		ID:      wire.ID,
		Kind:    domain.ParseKind(wire.Type),
		RawType: wire.Type,
		Data:    wire.Data.Object,
	}

	s.dispatch(ctx, event)
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(ctx, string(event.Kind))
	}
	return event, nil
}

func (s *Service) dispatch(ctx context.Context, event domain.Event) {
	log := s.log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.RawType),
	)

	switch event.Kind {
	case domain.KindInvoicePaid:
		log.Info("invoice paid")
	case domain.KindInvoicePaymentSucceeded:
		log.Info("invoice payment succeeded")
	case domain.KindInvoicePaymentFailed:
		// The client is expected to collect a new payment method and hit the
		// retry-invoice endpoint.
		log.Warn("invoice payment failed")
	case domain.KindInvoiceFinalized:
		log.Info("invoice finalized")
	case domain.KindSubscriptionDeleted:
		log.Info("subscription deleted")
	case domain.KindSubscriptionTrialWillEnd:
		log.Info("subscription trial ending soon")
	case domain.KindCheckoutSessionCompleted:
		log.Info("checkout session completed")
	case domain.KindUnhandled:
		log.Debug("unhandled webhook event type")
	}
}
