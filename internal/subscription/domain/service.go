package domain

import (
	"context"
	"errors"
	"fmt"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
)

// CreateRequest creates a subscription for a customer. Quantity is optional:
// zero means the price drives billing (fixed-price and metered flows). A
// payment method, when present, is attached and made the default before the
// subscription is created (per-seat flow); otherwise the subscription starts
// incomplete and the client confirms the first invoice's payment intent.
type CreateRequest struct {
	CustomerID      string
	Plan            string
	Quantity        int64
	PaymentMethodID string
}

// PreviewChangeRequest previews the invoice for a price/quantity change.
// SubscriptionID is empty for a brand-new subscription preview.
type PreviewChangeRequest struct {
	CustomerID     string
	SubscriptionID string
	Plan           string
	Quantity       int64
}

// ApplyChangeRequest commits a price/quantity change. InvoiceProration
// additionally creates and pays a standalone invoice for the proration delta
// (per-seat flow).
type ApplyChangeRequest struct {
	SubscriptionID   string
	Plan             string
	Quantity         int64
	InvoiceProration bool
	Description      string
}

// RetryInvoiceRequest retries payment of an open invoice with a new payment
// method.
type RetryInvoiceRequest struct {
	CustomerID      string
	PaymentMethodID string
	InvoiceID       string
}

type Service interface {
	CreateCustomer(ctx context.Context, email string) (billingdomain.Customer, error)
	Create(ctx context.Context, req CreateRequest) (billingdomain.Subscription, error)
	Cancel(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error)
	Info(ctx context.Context, subscriptionID string) (Information, error)
	PreviewChange(ctx context.Context, req PreviewChangeRequest) (ChangePreview, error)
	ApplyChange(ctx context.Context, req ApplyChangeRequest) (AppliedChange, error)
	RetryInvoice(ctx context.Context, req RetryInvoiceRequest) (billingdomain.Invoice, error)
}

var (
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidSubscription = errors.New("invalid_subscription")
	ErrMissingItem         = errors.New("subscription_item_missing")
	ErrPartialApply        = errors.New("partial_apply")
)

// PartialApplyError reports that the subscription update succeeded but the
// proration invoicing step failed. The subscription-side effect has already
// happened, so this must not be treated as a full failure; it needs manual
// reconciliation.
type PartialApplyError struct {
	SubscriptionID string
	Cause          error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("subscription %s updated but proration invoicing failed: %v", e.SubscriptionID, e.Cause)
}

func (e *PartialApplyError) Unwrap() error { return e.Cause }

func (e *PartialApplyError) Is(target error) bool { return target == ErrPartialApply }
