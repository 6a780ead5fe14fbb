// Package domain models vendor webhook events as a closed set. Event types
// outside the set are tagged unhandled instead of being silently dropped, so
// new vendor types show up in logs before anyone writes code for them.
package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// EventKind tags a webhook event with one of the types this service reacts
// to, or KindUnhandled for everything else.
type EventKind string

const (
	KindInvoicePaid              EventKind = "invoice.paid"
	KindInvoicePaymentSucceeded  EventKind = "invoice.payment_succeeded"
	KindInvoicePaymentFailed     EventKind = "invoice.payment_failed"
	KindInvoiceFinalized         EventKind = "invoice.finalized"
	KindSubscriptionDeleted      EventKind = "customer.subscription.deleted"
	KindSubscriptionTrialWillEnd EventKind = "customer.subscription.trial_will_end"
	KindCheckoutSessionCompleted EventKind = "checkout.session.completed"
	KindUnhandled                EventKind = "unhandled"
)

// ParseKind classifies a raw vendor event type.
func ParseKind(rawType string) EventKind {
	switch EventKind(rawType) {
	case KindInvoicePaid,
		KindInvoicePaymentSucceeded,
		KindInvoicePaymentFailed,
		KindInvoiceFinalized,
		KindSubscriptionDeleted,
		KindSubscriptionTrialWillEnd,
		KindCheckoutSessionCompleted:
		return EventKind(rawType)
	default:
		return KindUnhandled
	}
}

// Event is a verified webhook delivery. RawType preserves the vendor's type
// string even when Kind is KindUnhandled.
type Event struct {
	ID      string          `json:"id"`
	Kind    EventKind       `json:"kind"`
	RawType string          `json:"raw_type"`
	Data    json.RawMessage `json:"data"`
}

type Service interface {
	// HandleEvent verifies the delivery signature and dispatches the event.
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (Event, error)
}

var (
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrSignatureExpired = errors.New("signature_expired")
)
