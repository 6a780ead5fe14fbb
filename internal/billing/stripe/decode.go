package stripe

import (
	"encoding/json"
	"time"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
)

// Wire shapes. Expandable references decode into json.RawMessage because the
// vendor returns either a bare id string or the expanded object.
type wireSubscription struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Customer         json.RawMessage `json:"customer"`
	CurrentPeriodEnd int64           `json:"current_period_end"`
	Items            struct {
		Data []struct {
			ID    string `json:"id"`
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			Quantity int64 `json:"quantity"`
		} `json:"data"`
	} `json:"items"`
	LatestInvoice json.RawMessage `json:"latest_invoice"`
	Plan          struct {
		Product json.RawMessage `json:"product"`
	} `json:"plan"`
}

type wireInvoice struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	AmountDue  int64  `json:"amount_due"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Lines      struct {
		Data []struct {
			Description string `json:"description"`
			Amount      int64  `json:"amount"`
			Period      struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
	PaymentIntent json.RawMessage `json:"payment_intent"`
}

type wireProduct struct {
	Name string `json:"name"`
}

type wirePaymentIntent struct {
	ClientSecret string `json:"client_secret"`
}

func decodeSubscription(body []byte) (billingdomain.Subscription, error) {
	var wire wireSubscription
	if err := json.Unmarshal(body, &wire); err != nil {
		return billingdomain.Subscription{}, err
	}

	sub := billingdomain.Subscription{
		ID:         wire.ID,
		Status:     wire.Status,
		CustomerID: decodeExpandableID(wire.Customer),
	}
	if wire.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(wire.CurrentPeriodEnd, 0).UTC()
	}
	for _, item := range wire.Items.Data {
		sub.Items = append(sub.Items, billingdomain.SubscriptionItem{
			ID:       item.ID,
			PriceRef: item.Price.ID,
			Quantity: item.Quantity,
		})
	}
	if expanded := expandedObject(wire.LatestInvoice); expanded != nil {
		invoice, err := decodeInvoice(expanded)
		if err != nil {
			return billingdomain.Subscription{}, err
		}
		sub.LatestInvoice = &invoice
	}
	if expanded := expandedObject(wire.Plan.Product); expanded != nil {
		var product wireProduct
		if err := json.Unmarshal(expanded, &product); err == nil {
			sub.ProductName = product.Name
		}
	}
	return sub, nil
}

func decodeInvoice(body []byte) (billingdomain.Invoice, error) {
	var wire wireInvoice
	if err := json.Unmarshal(body, &wire); err != nil {
		return billingdomain.Invoice{}, err
	}

	invoice := billingdomain.Invoice{
		ID:         wire.ID,
		Status:     wire.Status,
		AmountDue:  wire.AmountDue,
		AmountPaid: wire.AmountPaid,
		Currency:   wire.Currency,
	}
	for _, line := range wire.Lines.Data {
		invoiceLine := billingdomain.InvoiceLine{
			Description: line.Description,
			Amount:      line.Amount,
		}
		if line.Period.End > 0 {
			invoiceLine.PeriodEnd = time.Unix(line.Period.End, 0).UTC()
		}
		invoice.Lines = append(invoice.Lines, invoiceLine)
	}
	if expanded := expandedObject(wire.PaymentIntent); expanded != nil {
		var intent wirePaymentIntent
		if err := json.Unmarshal(expanded, &intent); err == nil {
			invoice.PaymentIntentClientSecret = intent.ClientSecret
		}
	}
	return invoice, nil
}

// decodeExpandableID returns the id whether the field is a bare string or an
// expanded object.
func decodeExpandableID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// expandedObject returns the raw JSON when the field holds an expanded
// object rather than a bare id string or null.
func expandedObject(raw json.RawMessage) json.RawMessage {
	trimmed := string(raw)
	if len(trimmed) == 0 || trimmed == "null" {
		return nil
	}
	if trimmed[0] == '{' {
		return raw
	}
	return nil
}
