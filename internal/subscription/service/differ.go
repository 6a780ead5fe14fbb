package service

import (
	"strings"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	"github.com/smallbiznis/subgate/internal/subscription/domain"
)

// Diff compares the subscription's current item against the requested price
// and quantity and produces the minimal edit. A quantity-only change updates
// the item in place; a price change deletes the old item and adds the new
// price in the same batch.
func Diff(current *billingdomain.SubscriptionItem, priceRef string, quantity int64) (domain.EditOperation, error) {
	if quantity <= 0 {
		return domain.EditOperation{}, domain.ErrInvalidQuantity
	}
	priceRef = strings.TrimSpace(priceRef)
	if priceRef == "" {
		return domain.EditOperation{}, domain.ErrInvalidPrice
	}

	if current == nil {
		return domain.EditOperation{
			Kind:     domain.EditKindCreate,
			PriceRef: priceRef,
			Quantity: quantity,
		}, nil
	}

	if current.PriceRef == priceRef {
		return domain.EditOperation{
			Kind:     domain.EditKindUpdate,
			ItemID:   current.ID,
			PriceRef: priceRef,
			Quantity: quantity,
		}, nil
	}

	return domain.EditOperation{
		Kind:     domain.EditKindReplace,
		ItemID:   current.ID,
		PriceRef: priceRef,
		Quantity: quantity,
	}, nil
}
