package domain

import (
	"context"
	"time"
)

// ItemEdit mirrors the vendor's subscription item edit shape: update an item
// in place, mark one deleted, or add a new price in the same batch.
type ItemEdit struct {
	ItemID   string
	PriceRef string
	Quantity *int64
	Deleted  bool
}

// CreateSubscriptionParams configures subscription creation across the
// fixed-price, per-seat and metered flows.
type CreateSubscriptionParams struct {
	CustomerID      string
	PriceRef        string
	Quantity        *int64 // nil for metered prices
	PaymentBehavior string // e.g. "default_incomplete"
}

// UpdateSubscriptionParams applies an item edit batch to a subscription.
type UpdateSubscriptionParams struct {
	Items             []ItemEdit
	ProrationBehavior string
}

// UpcomingInvoiceParams previews the next invoice, optionally simulating an
// item edit batch against an existing subscription.
type UpcomingInvoiceParams struct {
	CustomerID     string
	SubscriptionID string
	Items          []ItemEdit
}

// CreateInvoiceParams creates a standalone invoice for a subscription.
type CreateInvoiceParams struct {
	CustomerID     string
	SubscriptionID string
	Description    string
}

// CreatePriceParams creates a metered price bound to a usage meter.
type CreatePriceParams struct {
	ProductName string
	MeterID     string
	UnitAmount  int64
	Currency    string
	Interval    string
}

// Provider is the billing vendor boundary. Implementations must honor
// context cancellation and apply idempotency keys to mutating calls.
type Provider interface {
	CreateCustomer(ctx context.Context, email string) (Customer, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	GetSubscription(ctx context.Context, subscriptionID string) (Subscription, error)
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (Subscription, error)

	UpcomingInvoice(ctx context.Context, params UpcomingInvoiceParams) (Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	CreateAndPayInvoice(ctx context.Context, params CreateInvoiceParams) (Invoice, error)

	CreateMeter(ctx context.Context, displayName, eventName string) (Meter, error)
	CreatePrice(ctx context.Context, params CreatePriceParams) (Price, error)
	SubmitMeterEvent(ctx context.Context, event MeterEvent) error
}

// ProrationAlwaysInvoice instructs the vendor to invoice proration charges
// immediately on subscription updates.
const ProrationAlwaysInvoice = "always_invoice"

// Timestamp helper for zero-value comparisons on invoice lines.
func (l InvoiceLine) HasPeriodEnd() bool {
	return !l.PeriodEnd.IsZero() && !l.PeriodEnd.Equal(time.Unix(0, 0))
}
