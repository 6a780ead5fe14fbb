package service

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	"github.com/smallbiznis/subgate/internal/clock"
	"github.com/smallbiznis/subgate/internal/usage/domain"
)

const (
	defaultCurrency = "usd"
	defaultInterval = "month"
)

// ServiceParam wires service dependencies.
type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Provider billingdomain.Provider
	Clock    clock.Clock
}

// Service provisions meters and metered prices and reports usage events.
type Service struct {
	log      *zap.Logger
	provider billingdomain.Provider
	clock    clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:      p.Log,
		provider: p.Provider,
		clock:    p.Clock,
	}
}

func (s *Service) CreateMeter(ctx context.Context, req domain.CreateMeterRequest) (billingdomain.Meter, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	eventName := strings.TrimSpace(req.EventName)
	if displayName == "" || eventName == "" {
		return billingdomain.Meter{}, domain.ErrInvalidMeter
	}

	meter, err := s.provider.CreateMeter(ctx, displayName, eventName)
	if err != nil {
		return billingdomain.Meter{}, err
	}

	s.log.Info("usage meter created",
		zap.String("meter_id", meter.ID),
		zap.String("event_name", meter.EventName),
	)
	return meter, nil
}

func (s *Service) CreatePrice(ctx context.Context, req domain.CreatePriceRequest) (billingdomain.Price, error) {
	productName := strings.TrimSpace(req.ProductName)
	meterID := strings.TrimSpace(req.MeterID)
	if productName == "" || meterID == "" || req.UnitAmount <= 0 {
		return billingdomain.Price{}, domain.ErrInvalidPrice
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	interval := strings.TrimSpace(req.Interval)
	if interval == "" {
		interval = defaultInterval
	}

	price, err := s.provider.CreatePrice(ctx, billingdomain.CreatePriceParams{
		ProductName: productName,
		MeterID:     meterID,
		UnitAmount:  req.UnitAmount,
		Currency:    currency,
		Interval:    interval,
	})
	if err != nil {
		return billingdomain.Price{}, err
	}

	s.log.Info("metered price created",
		zap.String("price_id", price.ID),
		zap.String("meter_id", meterID),
	)
	return price, nil
}

func (s *Service) ReportUsage(ctx context.Context, req domain.ReportUsageRequest) error {
	eventName := strings.TrimSpace(req.EventName)
	customerID := strings.TrimSpace(req.CustomerID)
	if eventName == "" || customerID == "" || req.Value <= 0 {
		return domain.ErrInvalidUsage
	}

	return s.provider.SubmitMeterEvent(ctx, billingdomain.MeterEvent{
		EventName:  eventName,
		CustomerID: customerID,
		Value:      req.Value,
		Timestamp:  s.clock.Now(),
	})
}
