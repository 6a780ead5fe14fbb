// Package domain defines the billing vendor boundary. The vendor is the
// system of record for all subscription state; nothing here is persisted.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Customer is a vendor customer record.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SubscriptionItem is a single billable line on a subscription. All sample
// flows model a subscription as owning exactly one item.
type SubscriptionItem struct {
	ID       string `json:"id"`
	PriceRef string `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Subscription is the vendor view of a customer's subscription.
type Subscription struct {
	ID               string             `json:"id"`
	CustomerID       string             `json:"customer_id"`
	Status           string             `json:"status"`
	CurrentPeriodEnd time.Time          `json:"current_period_end"`
	Items            []SubscriptionItem `json:"items"`
	LatestInvoice    *Invoice           `json:"latest_invoice,omitempty"`
	ProductName      string             `json:"product_name,omitempty"`
}

// Item returns the subscription's single billable item.
func (s Subscription) Item() (SubscriptionItem, bool) {
	if len(s.Items) == 0 {
		return SubscriptionItem{}, false
	}
	return s.Items[0], true
}

// InvoiceLine is one line on an invoice. Amount is in minor currency units
// and signed; negative amounts are proration credits. PeriodEnd is zero when
// the vendor did not report a period for the line.
type InvoiceLine struct {
	Description string    `json:"description,omitempty"`
	Amount      int64     `json:"amount"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Invoice is the vendor view of an invoice.
type Invoice struct {
	ID                        string        `json:"id"`
	Status                    string        `json:"status"`
	AmountDue                 int64         `json:"amount_due"`
	AmountPaid                int64         `json:"amount_paid"`
	Currency                  string        `json:"currency"`
	Lines                     []InvoiceLine `json:"lines"`
	PaymentIntentClientSecret string        `json:"payment_intent_client_secret,omitempty"`
	DefaultPaymentMethodLast4 string        `json:"default_payment_method_last4,omitempty"`
}

// Meter identifies a usage meter for metered billing.
type Meter struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	EventName   string `json:"event_name"`
}

// Price is a vendor price created for metered billing.
type Price struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

// MeterEvent reports consumption against a meter.
type MeterEvent struct {
	EventName  string
	CustomerID string
	Value      float64
	Timestamp  time.Time
}

var (
	ErrNotFound      = errors.New("not_found")
	ErrInvalidConfig = errors.New("billing_config_invalid")
)

// VendorError carries a vendor rejection verbatim so the caller can surface
// the original message (card declines, invalid requests).
type VendorError struct {
	Status  int
	Code    string
	Message string
}

func (e *VendorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("vendor request failed with status %d", e.Status)
}

// AsVendorError unwraps err into a VendorError when possible.
func AsVendorError(err error) (*VendorError, bool) {
	var vErr *VendorError
	if errors.As(err, &vErr) && vErr != nil {
		return vErr, true
	}
	return nil, false
}
