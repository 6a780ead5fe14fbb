package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	"github.com/smallbiznis/subgate/internal/subscription/domain"
)

func TestDiffQuantityOnlyChangeUpdatesInPlace(t *testing.T) {
	current := &billingdomain.SubscriptionItem{ID: "si_1", PriceRef: "price_basic", Quantity: 3}

	edit, err := Diff(current, "price_basic", 5)
	require.NoError(t, err)

	assert.Equal(t, domain.EditKindUpdate, edit.Kind)
	assert.Equal(t, "si_1", edit.ItemID)
	assert.Equal(t, int64(5), edit.Quantity)

	items := edit.ItemEdits()
	require.Len(t, items, 1)
	assert.Equal(t, "si_1", items[0].ItemID)
	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, int64(5), *items[0].Quantity)
	assert.False(t, items[0].Deleted)
}

func TestDiffPriceChangeReplacesItem(t *testing.T) {
	current := &billingdomain.SubscriptionItem{ID: "si_1", PriceRef: "price_basic", Quantity: 3}

	edit, err := Diff(current, "price_premium", 3)
	require.NoError(t, err)

	assert.Equal(t, domain.EditKindReplace, edit.Kind)
	assert.Equal(t, "si_1", edit.ItemID)
	assert.Equal(t, "price_premium", edit.PriceRef)

	items := edit.ItemEdits()
	require.Len(t, items, 2)
	assert.Equal(t, "si_1", items[0].ItemID)
	assert.True(t, items[0].Deleted)
	assert.Equal(t, "price_premium", items[1].PriceRef)
	require.NotNil(t, items[1].Quantity)
	assert.Equal(t, int64(3), *items[1].Quantity)
}

func TestDiffNoCurrentItemCreates(t *testing.T) {
	edit, err := Diff(nil, "price_basic", 1)
	require.NoError(t, err)

	assert.Equal(t, domain.EditKindCreate, edit.Kind)
	assert.Empty(t, edit.ItemID)

	items := edit.ItemEdits()
	require.Len(t, items, 1)
	assert.Equal(t, "price_basic", items[0].PriceRef)
}

func TestDiffRejectsNonPositiveQuantity(t *testing.T) {
	current := &billingdomain.SubscriptionItem{ID: "si_1", PriceRef: "price_basic", Quantity: 3}

	for _, quantity := range []int64{0, -1} {
		_, err := Diff(current, "price_basic", quantity)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
}

func TestDiffRejectsEmptyPrice(t *testing.T) {
	_, err := Diff(nil, "  ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}
