package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	catalogdomain "github.com/smallbiznis/subgate/internal/catalog/domain"
	"github.com/smallbiznis/subgate/internal/subscription/domain"
)

type fakeCatalog struct {
	plans map[string]catalogdomain.Plan
}

func (f *fakeCatalog) Resolve(identifier string) (catalogdomain.Plan, error) {
	plan, ok := f.plans[identifier]
	if !ok {
		return catalogdomain.Plan{}, catalogdomain.ErrUnknownPlan
	}
	return plan, nil
}

func (f *fakeCatalog) List() []catalogdomain.Plan { return nil }

type fakeProvider struct {
	subscription billingdomain.Subscription
	upcoming     billingdomain.Invoice
	invoice      billingdomain.Invoice

	updateErr   error
	payErr      error
	upcomingErr error

	attachedPaymentMethod string
	createParams          billingdomain.CreateSubscriptionParams
	updateParams          billingdomain.UpdateSubscriptionParams
	upcomingParams        billingdomain.UpcomingInvoiceParams
	payInvoiceCalls       int
	cancelled             string
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email string) (billingdomain.Customer, error) {
	return billingdomain.Customer{ID: "cus_1", Email: email}, nil
}

func (f *fakeProvider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	f.attachedPaymentMethod = paymentMethodID
	return nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error) {
	if f.subscription.ID == "" {
		return billingdomain.Subscription{}, billingdomain.ErrNotFound
	}
	return f.subscription, nil
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, params billingdomain.CreateSubscriptionParams) (billingdomain.Subscription, error) {
	f.createParams = params
	return f.subscription, nil
}

func (f *fakeProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params billingdomain.UpdateSubscriptionParams) (billingdomain.Subscription, error) {
	if f.updateErr != nil {
		return billingdomain.Subscription{}, f.updateErr
	}
	f.updateParams = params
	return f.subscription, nil
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error) {
	f.cancelled = subscriptionID
	sub := f.subscription
	sub.Status = "canceled"
	return sub, nil
}

func (f *fakeProvider) UpcomingInvoice(ctx context.Context, params billingdomain.UpcomingInvoiceParams) (billingdomain.Invoice, error) {
	if f.upcomingErr != nil {
		return billingdomain.Invoice{}, f.upcomingErr
	}
	f.upcomingParams = params
	return f.upcoming, nil
}

func (f *fakeProvider) GetInvoice(ctx context.Context, invoiceID string) (billingdomain.Invoice, error) {
	return f.invoice, nil
}

func (f *fakeProvider) CreateAndPayInvoice(ctx context.Context, params billingdomain.CreateInvoiceParams) (billingdomain.Invoice, error) {
	f.payInvoiceCalls++
	if f.payErr != nil {
		return billingdomain.Invoice{}, f.payErr
	}
	return f.invoice, nil
}

func (f *fakeProvider) CreateMeter(ctx context.Context, displayName, eventName string) (billingdomain.Meter, error) {
	return billingdomain.Meter{}, nil
}

func (f *fakeProvider) CreatePrice(ctx context.Context, params billingdomain.CreatePriceParams) (billingdomain.Price, error) {
	return billingdomain.Price{}, nil
}

func (f *fakeProvider) SubmitMeterEvent(ctx context.Context, event billingdomain.MeterEvent) error {
	return nil
}

func newTestService(provider *fakeProvider) domain.Service {
	catalog := &fakeCatalog{plans: map[string]catalogdomain.Plan{
		"BASIC":   {Identifier: "BASIC", PriceRef: "price_basic"},
		"PREMIUM": {Identifier: "PREMIUM", PriceRef: "price_premium"},
	}}
	return NewService(ServiceParam{
		Log:      zap.NewNop(),
		Provider: provider,
		Catalog:  catalog,
	})
}

func seatSubscription(periodEnd time.Time) billingdomain.Subscription {
	return billingdomain.Subscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           "active",
		CurrentPeriodEnd: periodEnd,
		Items: []billingdomain.SubscriptionItem{
			{ID: "si_1", PriceRef: "price_basic", Quantity: 3},
		},
	}
}

func TestPreviewChangeSplitsProrationFromRenewal(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		subscription: seatSubscription(periodEnd),
		upcoming: billingdomain.Invoice{
			ID: "in_upcoming",
			Lines: []billingdomain.InvoiceLine{
				{Amount: 500, PeriodEnd: periodEnd},
				{Amount: 1500, PeriodEnd: periodEnd.AddDate(0, 1, 0)},
			},
		},
	}
	svc := newTestService(provider)

	preview, err := svc.PreviewChange(context.Background(), domain.PreviewChangeRequest{
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Plan:           "BASIC",
		Quantity:       5,
	})
	require.NoError(t, err)

	assert.True(t, preview.Split)
	assert.Equal(t, domain.EditKindUpdate, preview.Edit.Kind)
	assert.Equal(t, int64(500), preview.ImmediateTotal)
	assert.Equal(t, int64(1500), preview.NextPeriodTotal)
	assert.Equal(t, int64(2000), preview.Total)

	require.Len(t, provider.upcomingParams.Items, 1)
	assert.Equal(t, "si_1", provider.upcomingParams.Items[0].ItemID)
}

func TestPreviewChangeWithoutSubscriptionIsFlat(t *testing.T) {
	provider := &fakeProvider{
		upcoming: billingdomain.Invoice{
			ID:    "in_upcoming",
			Lines: []billingdomain.InvoiceLine{{Amount: 1200}},
		},
	}
	svc := newTestService(provider)

	preview, err := svc.PreviewChange(context.Background(), domain.PreviewChangeRequest{
		CustomerID: "cus_1",
		Plan:       "PREMIUM",
		Quantity:   1,
	})
	require.NoError(t, err)

	assert.False(t, preview.Split)
	assert.Equal(t, domain.EditKindCreate, preview.Edit.Kind)
	assert.Equal(t, int64(1200), preview.Total)
	assert.Empty(t, provider.upcomingParams.SubscriptionID)
}

func TestPreviewChangeUnknownPlan(t *testing.T) {
	svc := newTestService(&fakeProvider{})

	_, err := svc.PreviewChange(context.Background(), domain.PreviewChangeRequest{
		CustomerID: "cus_1",
		Plan:       "ENTERPRISE",
		Quantity:   1,
	})
	assert.ErrorIs(t, err, catalogdomain.ErrUnknownPlan)
}

func TestApplyChangeInvoicesProration(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		subscription: seatSubscription(periodEnd),
		invoice:      billingdomain.Invoice{ID: "in_proration", Status: "paid"},
	}
	svc := newTestService(provider)

	applied, err := svc.ApplyChange(context.Background(), domain.ApplyChangeRequest{
		SubscriptionID:   "sub_1",
		Plan:             "PREMIUM",
		Quantity:         3,
		InvoiceProration: true,
	})
	require.NoError(t, err)

	assert.Equal(t, billingdomain.ProrationAlwaysInvoice, provider.updateParams.ProrationBehavior)
	require.Len(t, provider.updateParams.Items, 2)
	assert.True(t, provider.updateParams.Items[0].Deleted)
	require.NotNil(t, applied.ProrationInvoice)
	assert.Equal(t, "in_proration", applied.ProrationInvoice.ID)
}

func TestApplyChangeInvoiceFailureIsPartial(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	payErr := &billingdomain.VendorError{Status: 402, Code: "card_declined", Message: "Your card was declined."}
	provider := &fakeProvider{
		subscription: seatSubscription(periodEnd),
		payErr:       payErr,
	}
	svc := newTestService(provider)

	applied, err := svc.ApplyChange(context.Background(), domain.ApplyChangeRequest{
		SubscriptionID:   "sub_1",
		Plan:             "BASIC",
		Quantity:         5,
		InvoiceProration: true,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPartialApply)
	var partial *domain.PartialApplyError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "sub_1", partial.SubscriptionID)
	assert.ErrorIs(t, partial.Cause, payErr)

	// The update side effect already happened; the caller still gets it.
	assert.Equal(t, "sub_1", applied.Subscription.ID)
	assert.Equal(t, 1, provider.payInvoiceCalls)
}

func TestApplyChangeUpdateFailurePassesThrough(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	updateErr := &billingdomain.VendorError{Status: 500, Message: "internal"}
	provider := &fakeProvider{
		subscription: seatSubscription(periodEnd),
		updateErr:    updateErr,
	}
	svc := newTestService(provider)

	_, err := svc.ApplyChange(context.Background(), domain.ApplyChangeRequest{
		SubscriptionID:   "sub_1",
		Plan:             "BASIC",
		Quantity:         5,
		InvoiceProration: true,
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPartialApply)
	assert.Zero(t, provider.payInvoiceCalls)
}

func TestApplyChangeWithoutProrationInvoice(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{subscription: seatSubscription(periodEnd)}
	svc := newTestService(provider)

	applied, err := svc.ApplyChange(context.Background(), domain.ApplyChangeRequest{
		SubscriptionID: "sub_1",
		Plan:           "BASIC",
		Quantity:       4,
	})
	require.NoError(t, err)

	assert.Nil(t, applied.ProrationInvoice)
	assert.Zero(t, provider.payInvoiceCalls)
}

func TestApplyChangeRejectsInvalidQuantity(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{subscription: seatSubscription(periodEnd)}
	svc := newTestService(provider)

	_, err := svc.ApplyChange(context.Background(), domain.ApplyChangeRequest{
		SubscriptionID: "sub_1",
		Plan:           "BASIC",
		Quantity:       0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCreateAttachesPaymentMethodFirst(t *testing.T) {
	provider := &fakeProvider{subscription: seatSubscription(time.Now())}
	svc := newTestService(provider)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		CustomerID:      "cus_1",
		Plan:            "BASIC",
		Quantity:        3,
		PaymentMethodID: "pm_card",
	})
	require.NoError(t, err)

	assert.Equal(t, "pm_card", provider.attachedPaymentMethod)
	assert.Empty(t, provider.createParams.PaymentBehavior)
	require.NotNil(t, provider.createParams.Quantity)
	assert.Equal(t, int64(3), *provider.createParams.Quantity)
}

func TestCreateWithoutPaymentMethodStartsIncomplete(t *testing.T) {
	provider := &fakeProvider{subscription: seatSubscription(time.Now())}
	svc := newTestService(provider)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		CustomerID: "cus_1",
		Plan:       "BASIC",
	})
	require.NoError(t, err)

	assert.Equal(t, "default_incomplete", provider.createParams.PaymentBehavior)
	assert.Nil(t, provider.createParams.Quantity)
}

func TestInfoCollectsInvoices(t *testing.T) {
	periodEnd := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	sub := seatSubscription(periodEnd)
	sub.ProductName = "Team plan"
	sub.LatestInvoice = &billingdomain.Invoice{ID: "in_latest"}
	provider := &fakeProvider{
		subscription: sub,
		upcoming:     billingdomain.Invoice{ID: "in_upcoming"},
	}
	svc := newTestService(provider)

	info, err := svc.Info(context.Background(), "sub_1")
	require.NoError(t, err)

	assert.Equal(t, "Team plan", info.ProductDescription)
	assert.Equal(t, "price_basic", info.CurrentPriceRef)
	assert.Equal(t, int64(3), info.CurrentQuantity)
	require.NotNil(t, info.UpcomingInvoice)
	assert.Equal(t, "in_upcoming", info.UpcomingInvoice.ID)
	assert.Equal(t, "in_latest", info.LatestInvoice.ID)
}

func TestCancelDelegatesToProvider(t *testing.T) {
	provider := &fakeProvider{subscription: seatSubscription(time.Now())}
	svc := newTestService(provider)

	sub, err := svc.Cancel(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", provider.cancelled)
	assert.Equal(t, "canceled", sub.Status)
}

func TestRetryInvoiceAttachesNewPaymentMethod(t *testing.T) {
	provider := &fakeProvider{invoice: billingdomain.Invoice{ID: "in_open", Status: "open"}}
	svc := newTestService(provider)

	invoice, err := svc.RetryInvoice(context.Background(), domain.RetryInvoiceRequest{
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_new",
		InvoiceID:       "in_open",
	})
	require.NoError(t, err)
	assert.Equal(t, "pm_new", provider.attachedPaymentMethod)
	assert.Equal(t, "in_open", invoice.ID)
}
