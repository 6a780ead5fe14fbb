package service

import (
	"context"
	"strings"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	catalogdomain "github.com/smallbiznis/subgate/internal/catalog/domain"
	"github.com/smallbiznis/subgate/internal/observability/metrics"
	"github.com/smallbiznis/subgate/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultProrationDescription = "Proration adjustment for subscription change"

// ServiceParam wires service dependencies.
type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Provider billingdomain.Provider
	Catalog  catalogdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service orchestrates the subscription sample flows against the billing
// vendor. It holds no state; the vendor is the system of record.
type Service struct {
	log      *zap.Logger
	provider billingdomain.Provider
	catalog  catalogdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:      p.Log,
		provider: p.Provider,
		catalog:  p.Catalog,
		metrics:  p.Metrics,
	}
}

func (s *Service) CreateCustomer(ctx context.Context, email string) (billingdomain.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return billingdomain.Customer{}, domain.ErrInvalidCustomer
	}
	return s.provider.CreateCustomer(ctx, email)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (billingdomain.Subscription, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return billingdomain.Subscription{}, domain.ErrInvalidCustomer
	}

	plan, err := s.catalog.Resolve(req.Plan)
	if err != nil {
		return billingdomain.Subscription{}, err
	}
	if req.Quantity < 0 {
		return billingdomain.Subscription{}, domain.ErrInvalidQuantity
	}

	params := billingdomain.CreateSubscriptionParams{
		CustomerID: customerID,
		PriceRef:   plan.PriceRef,
	}
	if req.Quantity > 0 {
		quantity := req.Quantity
		params.Quantity = &quantity
	}

	if paymentMethodID := strings.TrimSpace(req.PaymentMethodID); paymentMethodID != "" {
		if err := s.provider.AttachPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
			return billingdomain.Subscription{}, err
		}
	} else {
		// Without a payment method on file the subscription starts incomplete
		// and the client confirms the first invoice's payment intent.
		params.PaymentBehavior = "default_incomplete"
	}

	sub, err := s.provider.CreateSubscription(ctx, params)
	if err != nil {
		return billingdomain.Subscription{}, err
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("plan", plan.Identifier),
	)
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return billingdomain.Subscription{}, domain.ErrInvalidSubscription
	}
	return s.provider.CancelSubscription(ctx, subscriptionID)
}

func (s *Service) Info(ctx context.Context, subscriptionID string) (domain.Information, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return domain.Information{}, domain.ErrInvalidSubscription
	}

	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return domain.Information{}, err
	}

	info := domain.Information{
		ProductDescription: sub.ProductName,
		Status:             sub.Status,
		LatestInvoice:      sub.LatestInvoice,
	}
	if item, ok := sub.Item(); ok {
		info.CurrentPriceRef = item.PriceRef
		info.CurrentQuantity = item.Quantity
	}

	upcoming, err := s.provider.UpcomingInvoice(ctx, billingdomain.UpcomingInvoiceParams{
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.ID,
	})
	if err != nil {
		return domain.Information{}, err
	}
	info.UpcomingInvoice = &upcoming

	return info, nil
}

func (s *Service) PreviewChange(ctx context.Context, req domain.PreviewChangeRequest) (domain.ChangePreview, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.ChangePreview{}, domain.ErrInvalidCustomer
	}

	plan, err := s.catalog.Resolve(req.Plan)
	if err != nil {
		return domain.ChangePreview{}, err
	}

	subscriptionID := strings.TrimSpace(req.SubscriptionID)
	if subscriptionID == "" {
		return s.previewNewSubscription(ctx, customerID, plan, req.Quantity)
	}

	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return domain.ChangePreview{}, err
	}

	var current *billingdomain.SubscriptionItem
	if item, ok := sub.Item(); ok {
		current = &item
	}

	edit, err := Diff(current, plan.PriceRef, req.Quantity)
	if err != nil {
		return domain.ChangePreview{}, err
	}

	invoice, err := s.provider.UpcomingInvoice(ctx, billingdomain.UpcomingInvoiceParams{
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		Items:          edit.ItemEdits(),
	})
	if err != nil {
		return domain.ChangePreview{}, err
	}

	immediate, next := splitLines(invoice.Lines, sub.CurrentPeriodEnd)
	return domain.ChangePreview{
		Edit:            edit,
		Split:           true,
		ImmediateTotal:  immediate,
		NextPeriodTotal: next,
		Total:           immediate + next,
		Invoice:         invoice,
		Lines:           invoice.Lines,
	}, nil
}

// previewNewSubscription previews the first invoice for a customer with no
// subscription. There is no billing period boundary yet, so no
// immediate/next split is produced.
func (s *Service) previewNewSubscription(ctx context.Context, customerID string, plan catalogdomain.Plan, quantity int64) (domain.ChangePreview, error) {
	edit, err := Diff(nil, plan.PriceRef, quantity)
	if err != nil {
		return domain.ChangePreview{}, err
	}

	invoice, err := s.provider.UpcomingInvoice(ctx, billingdomain.UpcomingInvoiceParams{
		CustomerID: customerID,
		Items:      edit.ItemEdits(),
	})
	if err != nil {
		return domain.ChangePreview{}, err
	}

	return domain.ChangePreview{
		Edit:    edit,
		Split:   false,
		Total:   sumLines(invoice.Lines),
		Invoice: invoice,
		Lines:   invoice.Lines,
	}, nil
}

func (s *Service) ApplyChange(ctx context.Context, req domain.ApplyChangeRequest) (domain.AppliedChange, error) {
	subscriptionID := strings.TrimSpace(req.SubscriptionID)
	if subscriptionID == "" {
		return domain.AppliedChange{}, domain.ErrInvalidSubscription
	}

	plan, err := s.catalog.Resolve(req.Plan)
	if err != nil {
		return domain.AppliedChange{}, err
	}

	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return domain.AppliedChange{}, err
	}
	item, ok := sub.Item()
	if !ok {
		return domain.AppliedChange{}, domain.ErrMissingItem
	}

	edit, err := Diff(&item, plan.PriceRef, req.Quantity)
	if err != nil {
		return domain.AppliedChange{}, err
	}

	updated, err := s.provider.UpdateSubscription(ctx, subscriptionID, billingdomain.UpdateSubscriptionParams{
		Items:             edit.ItemEdits(),
		ProrationBehavior: billingdomain.ProrationAlwaysInvoice,
	})
	if err != nil {
		s.recordChange(ctx, edit, "failed")
		return domain.AppliedChange{}, err
	}

	applied := domain.AppliedChange{Subscription: updated}

	if req.InvoiceProration {
		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = defaultProrationDescription
		}
		invoice, err := s.provider.CreateAndPayInvoice(ctx, billingdomain.CreateInvoiceParams{
			CustomerID:     updated.CustomerID,
			SubscriptionID: updated.ID,
			Description:    description,
		})
		if err != nil {
			// The subscription update already took effect; billing for the
			// delta did not. Surface this distinctly so an operator can
			// reconcile instead of treating it as a full failure.
			partial := &domain.PartialApplyError{SubscriptionID: updated.ID, Cause: err}
			s.log.Error("proration invoicing failed after subscription update",
				zap.String("subscription_id", updated.ID),
				zap.String("edit_kind", string(edit.Kind)),
				zap.Error(err),
			)
			s.recordChange(ctx, edit, "partial")
			return applied, partial
		}
		applied.ProrationInvoice = &invoice
	}

	s.log.Info("subscription change applied",
		zap.String("subscription_id", updated.ID),
		zap.String("edit_kind", string(edit.Kind)),
		zap.Int64("quantity", edit.Quantity),
	)
	s.recordChange(ctx, edit, "ok")
	return applied, nil
}

func (s *Service) RetryInvoice(ctx context.Context, req domain.RetryInvoiceRequest) (billingdomain.Invoice, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return billingdomain.Invoice{}, domain.ErrInvalidCustomer
	}

	if paymentMethodID := strings.TrimSpace(req.PaymentMethodID); paymentMethodID != "" {
		if err := s.provider.AttachPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
			return billingdomain.Invoice{}, err
		}
	}

	return s.provider.GetInvoice(ctx, strings.TrimSpace(req.InvoiceID))
}

func (s *Service) recordChange(ctx context.Context, edit domain.EditOperation, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSubscriptionChange(ctx, string(edit.Kind), outcome)
}
