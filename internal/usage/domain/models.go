// Package domain defines the metered billing operations: provisioning
// meters and metered prices, and reporting consumption.
package domain

import (
	"context"
	"errors"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
)

// CreateMeterRequest provisions a usage meter at the vendor.
type CreateMeterRequest struct {
	DisplayName string
	EventName   string
}

// CreatePriceRequest provisions a metered price bound to a meter.
type CreatePriceRequest struct {
	ProductName string
	MeterID     string
	UnitAmount  int64
	Currency    string
	Interval    string
}

// ReportUsageRequest records consumption against a meter for a customer.
type ReportUsageRequest struct {
	EventName  string
	CustomerID string
	Value      float64
}

type Service interface {
	CreateMeter(ctx context.Context, req CreateMeterRequest) (billingdomain.Meter, error)
	CreatePrice(ctx context.Context, req CreatePriceRequest) (billingdomain.Price, error)
	ReportUsage(ctx context.Context, req ReportUsageRequest) error
}

var (
	ErrInvalidMeter = errors.New("invalid_meter")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrInvalidUsage = errors.New("invalid_usage")
)
