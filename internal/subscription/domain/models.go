// Package domain models subscription change operations independently of the
// billing vendor wire format.
package domain

import (
	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
)

// EditKind tags the minimal edit computed for a change request.
type EditKind string

const (
	// EditKindCreate adds a first item; no subscription exists yet.
	EditKindCreate EditKind = "CREATE"
	// EditKindUpdate changes quantity on the existing item in place.
	EditKindUpdate EditKind = "UPDATE"
	// EditKindReplace deletes the existing item and adds a new price in the
	// same batch. The vendor represents a plan change this way to preserve
	// line-item history and proration granularity.
	EditKindReplace EditKind = "REPLACE"
)

// EditOperation is the single edit produced for a change request. After
// applying it the subscription owns exactly one item.
type EditOperation struct {
	Kind     EditKind `json:"kind"`
	ItemID   string   `json:"item_id,omitempty"`
	PriceRef string   `json:"price_ref,omitempty"`
	Quantity int64    `json:"quantity"`
}

// ItemEdits converts the edit into the vendor's item edit batch shape.
func (op EditOperation) ItemEdits() []billingdomain.ItemEdit {
	quantity := op.Quantity
	switch op.Kind {
	case EditKindUpdate:
		return []billingdomain.ItemEdit{
			{ItemID: op.ItemID, Quantity: &quantity},
		}
	case EditKindReplace:
		return []billingdomain.ItemEdit{
			{ItemID: op.ItemID, Deleted: true},
			{PriceRef: op.PriceRef, Quantity: &quantity},
		}
	default:
		return []billingdomain.ItemEdit{
			{PriceRef: op.PriceRef, Quantity: &quantity},
		}
	}
}

// ChangePreview partitions a previewed invoice into the amount charged
// immediately on confirmation and the amount due on the normal renewal date.
type ChangePreview struct {
	Edit            EditOperation               `json:"edit"`
	Split           bool                        `json:"split"`
	ImmediateTotal  int64                       `json:"immediate_total"`
	NextPeriodTotal int64                       `json:"next_period_total"`
	Total           int64                       `json:"total"`
	Invoice         billingdomain.Invoice       `json:"invoice"`
	Lines           []billingdomain.InvoiceLine `json:"lines,omitempty"`
}

// AppliedChange reports the outcome of a committed change.
type AppliedChange struct {
	Subscription     billingdomain.Subscription `json:"subscription"`
	ProrationInvoice *billingdomain.Invoice     `json:"proration_invoice,omitempty"`
}

// Information mirrors the subscription information endpoint of the sample
// servers: the current plan, quantity and invoices for an account page.
type Information struct {
	ProductDescription string                 `json:"product_description"`
	CurrentPriceRef    string                 `json:"current_price"`
	CurrentQuantity    int64                  `json:"current_quantity"`
	Status             string                 `json:"status"`
	LatestInvoice      *billingdomain.Invoice `json:"latest_invoice,omitempty"`
	UpcomingInvoice    *billingdomain.Invoice `json:"upcoming_invoice,omitempty"`
}
