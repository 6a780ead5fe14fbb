// Package stripe implements the billing vendor boundary against the Stripe
// HTTP API using form-encoded requests.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	"github.com/smallbiznis/subgate/internal/config"
	"github.com/smallbiznis/subgate/internal/observability/metrics"
	"go.uber.org/zap"
)

type Client struct {
	apiKey        string
	baseURL       string
	retryAttempts int
	client        *http.Client
	genID         *snowflake.Node
	log           *zap.Logger
	metrics       *metrics.Metrics
}

// NewClient builds a Stripe-backed Provider from the billing configuration.
func NewClient(cfg config.Config, genID *snowflake.Node, log *zap.Logger, m *metrics.Metrics) (billingdomain.Provider, error) {
	apiKey := strings.TrimSpace(cfg.Billing.APIKey)
	if apiKey == "" {
		return nil, billingdomain.ErrInvalidConfig
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Billing.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}

	timeout := cfg.Billing.RequestTimeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	retries := cfg.Billing.RetryAttempts
	if retries < 0 {
		retries = 0
	}

	return &Client{
		apiKey:        apiKey,
		baseURL:       baseURL,
		retryAttempts: retries,
		client:        &http.Client{Timeout: timeout},
		genID:         genID,
		log:           log,
		metrics:       m,
	}, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email string) (billingdomain.Customer, error) {
	values := url.Values{}
	values.Set("email", strings.TrimSpace(email))

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/customers", values, "create_customer")
	if err != nil {
		return billingdomain.Customer{}, err
	}

	var resp struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return billingdomain.Customer{}, err
	}
	return billingdomain.Customer{ID: resp.ID, Email: resp.Email}, nil
}

func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	values := url.Values{}
	values.Set("customer", customerID)
	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/payment_methods/"+paymentMethodID+"/attach", values, "attach_payment_method"); err != nil {
		return err
	}

	// Make the attached method the customer's default for invoices so the
	// subscription's recurring charges succeed.
	values = url.Values{}
	values.Set("invoice_settings[default_payment_method]", paymentMethodID)
	_, err := c.doRequest(ctx, http.MethodPost, "/v1/customers/"+customerID, values, "set_default_payment_method")
	return err
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error) {
	values := url.Values{}
	values.Add("expand[]", "latest_invoice.payment_intent")
	values.Add("expand[]", "plan.product")

	body, err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions/"+subscriptionID, values, "get_subscription")
	if err != nil {
		return billingdomain.Subscription{}, err
	}
	return decodeSubscription(body)
}

func (c *Client) CreateSubscription(ctx context.Context, params billingdomain.CreateSubscriptionParams) (billingdomain.Subscription, error) {
	values := url.Values{}
	values.Set("customer", params.CustomerID)
	values.Set("items[0][price]", params.PriceRef)
	if params.Quantity != nil {
		values.Set("items[0][quantity]", strconv.FormatInt(*params.Quantity, 10))
	}
	if params.PaymentBehavior != "" {
		values.Set("payment_behavior", params.PaymentBehavior)
	}
	values.Add("expand[]", "latest_invoice.payment_intent")

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/subscriptions", values, "create_subscription")
	if err != nil {
		return billingdomain.Subscription{}, err
	}
	return decodeSubscription(body)
}

func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, params billingdomain.UpdateSubscriptionParams) (billingdomain.Subscription, error) {
	values := url.Values{}
	encodeItemEdits(values, "items", params.Items)
	if params.ProrationBehavior != "" {
		values.Set("proration_behavior", params.ProrationBehavior)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/subscriptions/"+subscriptionID, values, "update_subscription")
	if err != nil {
		return billingdomain.Subscription{}, err
	}
	return decodeSubscription(body)
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error) {
	body, err := c.doRequest(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionID, nil, "cancel_subscription")
	if err != nil {
		return billingdomain.Subscription{}, err
	}
	return decodeSubscription(body)
}

func (c *Client) UpcomingInvoice(ctx context.Context, params billingdomain.UpcomingInvoiceParams) (billingdomain.Invoice, error) {
	values := url.Values{}
	values.Set("customer", params.CustomerID)
	if params.SubscriptionID != "" {
		values.Set("subscription", params.SubscriptionID)
	}
	encodeItemEdits(values, "subscription_items", params.Items)

	body, err := c.doRequest(ctx, http.MethodGet, "/v1/invoices/upcoming", values, "upcoming_invoice")
	if err != nil {
		return billingdomain.Invoice{}, err
	}
	return decodeInvoice(body)
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (billingdomain.Invoice, error) {
	values := url.Values{}
	values.Add("expand[]", "payment_intent")

	body, err := c.doRequest(ctx, http.MethodGet, "/v1/invoices/"+invoiceID, values, "get_invoice")
	if err != nil {
		return billingdomain.Invoice{}, err
	}
	return decodeInvoice(body)
}

func (c *Client) CreateAndPayInvoice(ctx context.Context, params billingdomain.CreateInvoiceParams) (billingdomain.Invoice, error) {
	values := url.Values{}
	values.Set("customer", params.CustomerID)
	values.Set("subscription", params.SubscriptionID)
	if params.Description != "" {
		values.Set("description", params.Description)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/invoices", values, "create_invoice")
	if err != nil {
		return billingdomain.Invoice{}, err
	}
	created, err := decodeInvoice(body)
	if err != nil {
		return billingdomain.Invoice{}, err
	}

	body, err = c.doRequest(ctx, http.MethodPost, "/v1/invoices/"+created.ID+"/pay", url.Values{}, "pay_invoice")
	if err != nil {
		return billingdomain.Invoice{}, err
	}
	return decodeInvoice(body)
}

func (c *Client) CreateMeter(ctx context.Context, displayName, eventName string) (billingdomain.Meter, error) {
	values := url.Values{}
	values.Set("display_name", displayName)
	values.Set("event_name", eventName)
	values.Set("default_aggregation[formula]", "sum")

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/billing/meters", values, "create_meter")
	if err != nil {
		return billingdomain.Meter{}, err
	}

	var resp struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		EventName   string `json:"event_name"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return billingdomain.Meter{}, err
	}
	return billingdomain.Meter{ID: resp.ID, DisplayName: resp.DisplayName, EventName: resp.EventName}, nil
}

func (c *Client) CreatePrice(ctx context.Context, params billingdomain.CreatePriceParams) (billingdomain.Price, error) {
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	interval := strings.TrimSpace(params.Interval)
	if interval == "" {
		interval = "month"
	}

	values := url.Values{}
	values.Set("currency", currency)
	values.Set("unit_amount", strconv.FormatInt(params.UnitAmount, 10))
	values.Set("recurring[interval]", interval)
	values.Set("recurring[usage_type]", "metered")
	values.Set("recurring[meter]", params.MeterID)
	values.Set("product_data[name]", params.ProductName)

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/prices", values, "create_price")
	if err != nil {
		return billingdomain.Price{}, err
	}

	var resp struct {
		ID         string `json:"id"`
		UnitAmount int64  `json:"unit_amount"`
		Currency   string `json:"currency"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return billingdomain.Price{}, err
	}
	return billingdomain.Price{ID: resp.ID, UnitAmount: resp.UnitAmount, Currency: resp.Currency}, nil
}

func (c *Client) SubmitMeterEvent(ctx context.Context, event billingdomain.MeterEvent) error {
	values := url.Values{}
	values.Set("event_name", event.EventName)
	values.Set("payload[stripe_customer_id]", event.CustomerID)
	values.Set("payload[value]", strconv.FormatFloat(event.Value, 'f', -1, 64))
	if !event.Timestamp.IsZero() {
		values.Set("timestamp", strconv.FormatInt(event.Timestamp.Unix(), 10))
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/v1/billing/meter_events", values, "submit_meter_event")
	return err
}

func encodeItemEdits(values url.Values, prefix string, items []billingdomain.ItemEdit) {
	for i, item := range items {
		key := fmt.Sprintf("%s[%d]", prefix, i)
		if item.ItemID != "" {
			values.Set(key+"[id]", item.ItemID)
		}
		if item.Deleted {
			values.Set(key+"[deleted]", "true")
			continue
		}
		if item.PriceRef != "" {
			values.Set(key+"[price]", item.PriceRef)
		}
		if item.Quantity != nil {
			values.Set(key+"[quantity]", strconv.FormatInt(*item.Quantity, 10))
		}
	}
}
