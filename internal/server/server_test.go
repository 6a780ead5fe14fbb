package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	catalogdomain "github.com/smallbiznis/subgate/internal/catalog/domain"
	"github.com/smallbiznis/subgate/internal/config"
	subscriptiondomain "github.com/smallbiznis/subgate/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/subgate/internal/usage/domain"
	webhookdomain "github.com/smallbiznis/subgate/internal/webhook/domain"
)

type fakeCatalog struct{}

func (fakeCatalog) Resolve(identifier string) (catalogdomain.Plan, error) {
	return catalogdomain.Plan{Identifier: identifier, PriceRef: "price_basic"}, nil
}

func (fakeCatalog) List() []catalogdomain.Plan {
	return []catalogdomain.Plan{{Identifier: "BASIC", PriceRef: "price_basic"}}
}

type fakeSubscriptionService struct {
	createCustomerErr error
	applyErr          error
	applyResult       subscriptiondomain.AppliedChange
	previewErr        error
	previewResult     subscriptiondomain.ChangePreview
	createErr         error
}

func (f *fakeSubscriptionService) CreateCustomer(ctx context.Context, email string) (billingdomain.Customer, error) {
	if f.createCustomerErr != nil {
		return billingdomain.Customer{}, f.createCustomerErr
	}
	return billingdomain.Customer{ID: "cus_1", Email: email}, nil
}

func (f *fakeSubscriptionService) Create(ctx context.Context, req subscriptiondomain.CreateRequest) (billingdomain.Subscription, error) {
	if f.createErr != nil {
		return billingdomain.Subscription{}, f.createErr
	}
	return billingdomain.Subscription{ID: "sub_1", CustomerID: req.CustomerID}, nil
}

func (f *fakeSubscriptionService) Cancel(ctx context.Context, subscriptionID string) (billingdomain.Subscription, error) {
	return billingdomain.Subscription{ID: subscriptionID, Status: "canceled"}, nil
}

func (f *fakeSubscriptionService) Info(ctx context.Context, subscriptionID string) (subscriptiondomain.Information, error) {
	return subscriptiondomain.Information{Status: "active"}, nil
}

func (f *fakeSubscriptionService) PreviewChange(ctx context.Context, req subscriptiondomain.PreviewChangeRequest) (subscriptiondomain.ChangePreview, error) {
	if f.previewErr != nil {
		return subscriptiondomain.ChangePreview{}, f.previewErr
	}
	return f.previewResult, nil
}

func (f *fakeSubscriptionService) ApplyChange(ctx context.Context, req subscriptiondomain.ApplyChangeRequest) (subscriptiondomain.AppliedChange, error) {
	if f.applyErr != nil {
		return f.applyResult, f.applyErr
	}
	return f.applyResult, nil
}

func (f *fakeSubscriptionService) RetryInvoice(ctx context.Context, req subscriptiondomain.RetryInvoiceRequest) (billingdomain.Invoice, error) {
	return billingdomain.Invoice{ID: req.InvoiceID, Status: "paid"}, nil
}

type fakeUsageService struct{}

func (fakeUsageService) CreateMeter(ctx context.Context, req usagedomain.CreateMeterRequest) (billingdomain.Meter, error) {
	return billingdomain.Meter{ID: "mtr_1"}, nil
}

func (fakeUsageService) CreatePrice(ctx context.Context, req usagedomain.CreatePriceRequest) (billingdomain.Price, error) {
	return billingdomain.Price{ID: "price_metered"}, nil
}

func (fakeUsageService) ReportUsage(ctx context.Context, req usagedomain.ReportUsageRequest) error {
	return nil
}

type fakeWebhookService struct {
	err  error
	kind webhookdomain.EventKind
}

func (f *fakeWebhookService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (webhookdomain.Event, error) {
	if f.err != nil {
		return webhookdomain.Event{}, f.err
	}
	return webhookdomain.Event{ID: "evt_1", Kind: f.kind}, nil
}

func newTestServer(subSvc subscriptiondomain.Service, webhookSvc webhookdomain.Service) *Server {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	cfg := config.Config{StaticDir: ""}
	cfg.Billing.PublishableKey = "pk_test_123"

	return NewServer(ServerParams{
		Gin:             engine,
		Cfg:             cfg,
		CatalogSvc:      fakeCatalog{},
		SubscriptionSvc: subSvc,
		UsageSvc:        fakeUsageService{},
		WebhookSvc:      webhookSvc,
	})
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetConfigExposesPublishableKeyAndPlans(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{}, &fakeWebhookService{})

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		PublishableKey string               `json:"publishableKey"`
		Plans          []catalogdomain.Plan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pk_test_123", resp.PublishableKey)
	require.Len(t, resp.Plans, 1)
	assert.Equal(t, "BASIC", resp.Plans[0].Identifier)
}

func TestCreateCustomerSetsCookie(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{}, &fakeWebhookService{})

	rec := postJSON(t, srv, "/create-customer", gin.H{"email": "jenny.rosen@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, customerCookie, cookies[0].Name)
	assert.Equal(t, "cus_1", cookies[0].Value)
}

func TestCreateSubscriptionUsesCookieCustomer(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{}, &fakeWebhookService{})

	raw, err := json.Marshal(gin.H{"planId": "BASIC", "quantity": 3})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/create-subscription", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: customerCookie, Value: "cus_cookie"})
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Subscription billingdomain.Subscription `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cus_cookie", resp.Subscription.CustomerID)
}

func TestUpdateSubscriptionMapsInvalidQuantity(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{applyErr: subscriptiondomain.ErrInvalidQuantity}, &fakeWebhookService{})

	rec := postJSON(t, srv, "/update-subscription", gin.H{
		"subscriptionId": "sub_1",
		"newPriceId":     "BASIC",
		"quantity":       0,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_quantity", payload.Errors[0].Code)
	assert.Equal(t, "quantity", payload.Errors[0].Field)
}

func TestUpdateSubscriptionSurfacesPartialApply(t *testing.T) {
	partial := &subscriptiondomain.PartialApplyError{
		SubscriptionID: "sub_1",
		Cause:          &billingdomain.VendorError{Status: 402, Code: "card_declined", Message: "Your card was declined."},
	}
	srv := newTestServer(&fakeSubscriptionService{applyErr: partial}, &fakeWebhookService{})

	rec := postJSON(t, srv, "/update-subscription", gin.H{
		"subscriptionId":   "sub_1",
		"newPriceId":       "BASIC",
		"quantity":         5,
		"invoiceProration": true,
	})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "partial_apply", payload.Type)
	assert.Contains(t, payload.Message, "sub_1")
}

func TestUpdateSubscriptionPassesVendorRejectionThrough(t *testing.T) {
	vendorErr := &billingdomain.VendorError{Status: 402, Code: "card_declined", Message: "Your card was declined."}
	srv := newTestServer(&fakeSubscriptionService{applyErr: vendorErr}, &fakeWebhookService{})

	rec := postJSON(t, srv, "/update-subscription", gin.H{
		"subscriptionId": "sub_1",
		"newPriceId":     "BASIC",
		"quantity":       5,
	})

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "vendor_rejected", payload.Type)
	assert.Equal(t, "Your card was declined.", payload.Message)
}

func TestRetrieveUpcomingInvoiceMapsUnknownPlan(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{previewErr: catalogdomain.ErrUnknownPlan}, &fakeWebhookService{})

	rec := postJSON(t, srv, "/retrieve-upcoming-invoice", gin.H{
		"customerId": "cus_1",
		"newPriceId": "ENTERPRISE",
		"quantity":   1,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "unknown_plan", payload.Errors[0].Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{}, &fakeWebhookService{err: webhookdomain.ErrInvalidSignature})

	rec := postJSON(t, srv, "/webhook", gin.H{"id": "evt_1", "type": "invoice.finalized"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "invalid_signature", payload.Type)
}

func TestWebhookAcknowledgesEvent(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{}, &fakeWebhookService{kind: webhookdomain.KindInvoiceFinalized})

	rec := postJSON(t, srv, "/webhook", gin.H{"id": "evt_1", "type": "invoice.finalized"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Received bool   `json:"received"`
		Kind     string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.Equal(t, "invoice.finalized", resp.Kind)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeSubscriptionService{}, &fakeWebhookService{})
	srv.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
