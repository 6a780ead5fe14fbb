package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	"github.com/smallbiznis/subgate/internal/clock"
	"github.com/smallbiznis/subgate/internal/usage/domain"
)

type fakeProvider struct {
	billingdomain.Provider

	meter       billingdomain.Meter
	price       billingdomain.Price
	priceParams billingdomain.CreatePriceParams
	event       billingdomain.MeterEvent
}

func (f *fakeProvider) CreateMeter(ctx context.Context, displayName, eventName string) (billingdomain.Meter, error) {
	f.meter = billingdomain.Meter{ID: "mtr_1", DisplayName: displayName, EventName: eventName}
	return f.meter, nil
}

func (f *fakeProvider) CreatePrice(ctx context.Context, params billingdomain.CreatePriceParams) (billingdomain.Price, error) {
	f.priceParams = params
	f.price = billingdomain.Price{ID: "price_metered", UnitAmount: params.UnitAmount, Currency: params.Currency}
	return f.price, nil
}

func (f *fakeProvider) SubmitMeterEvent(ctx context.Context, event billingdomain.MeterEvent) error {
	f.event = event
	return nil
}

func newTestService(provider *fakeProvider, now time.Time) domain.Service {
	return NewService(ServiceParam{
		Log:      zap.NewNop(),
		Provider: provider,
		Clock:    clock.NewFakeClock(now),
	})
}

func TestCreateMeterValidatesInput(t *testing.T) {
	svc := newTestService(&fakeProvider{}, time.Now())

	_, err := svc.CreateMeter(context.Background(), domain.CreateMeterRequest{DisplayName: " ", EventName: "alpaca_ai_tokens"})
	assert.ErrorIs(t, err, domain.ErrInvalidMeter)

	meter, err := svc.CreateMeter(context.Background(), domain.CreateMeterRequest{
		DisplayName: "Alpaca AI tokens",
		EventName:   "alpaca_ai_tokens",
	})
	require.NoError(t, err)
	assert.Equal(t, "alpaca_ai_tokens", meter.EventName)
}

func TestCreatePriceAppliesDefaults(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, time.Now())

	price, err := svc.CreatePrice(context.Background(), domain.CreatePriceRequest{
		ProductName: "Alpaca AI",
		MeterID:     "mtr_1",
		UnitAmount:  14,
	})
	require.NoError(t, err)
	assert.Equal(t, "price_metered", price.ID)
	assert.Equal(t, "usd", provider.priceParams.Currency)
	assert.Equal(t, "month", provider.priceParams.Interval)
}

func TestCreatePriceRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(&fakeProvider{}, time.Now())

	_, err := svc.CreatePrice(context.Background(), domain.CreatePriceRequest{
		ProductName: "Alpaca AI",
		MeterID:     "mtr_1",
		UnitAmount:  0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestReportUsageStampsEventTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	svc := newTestService(provider, now)

	err := svc.ReportUsage(context.Background(), domain.ReportUsageRequest{
		EventName:  "alpaca_ai_tokens",
		CustomerID: "cus_1",
		Value:      42,
	})
	require.NoError(t, err)
	assert.Equal(t, now, provider.event.Timestamp)
	assert.Equal(t, float64(42), provider.event.Value)
}

func TestReportUsageRejectsInvalidInput(t *testing.T) {
	svc := newTestService(&fakeProvider{}, time.Now())

	err := svc.ReportUsage(context.Background(), domain.ReportUsageRequest{
		EventName:  "alpaca_ai_tokens",
		CustomerID: "",
		Value:      1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUsage)

	err = svc.ReportUsage(context.Background(), domain.ReportUsageRequest{
		EventName:  "alpaca_ai_tokens",
		CustomerID: "cus_1",
		Value:      0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUsage)
}
