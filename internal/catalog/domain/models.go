// Package domain defines the plan catalog contract.
package domain

import "errors"

// Plan maps a symbolic plan identifier to a concrete vendor price.
type Plan struct {
	Identifier string `json:"identifier" mapstructure:"identifier"`
	PriceRef   string `json:"price_ref" mapstructure:"price"`
	UnitAmount int64  `json:"unit_amount,omitempty" mapstructure:"unit_amount"`
	Currency   string `json:"currency,omitempty" mapstructure:"currency"`
}

// Service resolves symbolic plan identifiers. Lookups are case-insensitive
// because identifiers arrive in mixed case from forms and URLs.
type Service interface {
	Resolve(identifier string) (Plan, error)
	List() []Plan
}

var (
	ErrUnknownPlan = errors.New("unknown_plan")
	ErrEmptyPlan   = errors.New("empty_plan")
)
