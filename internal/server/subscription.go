package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/subgate/internal/subscription/domain"
)

type createSubscriptionRequest struct {
	CustomerID      string `json:"customerId"`
	Plan            string `json:"planId"`
	Quantity        int64  `json:"quantity"`
	PaymentMethodID string `json:"paymentMethodId"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateRequest{
		CustomerID:      s.customerID(c, req.CustomerID),
		Plan:            req.Plan,
		Quantity:        req.Quantity,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

type subscriptionInformationRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

func (s *Server) RetrieveSubscriptionInformation(c *gin.Context) {
	var req subscriptionInformationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	info, err := s.subscriptionSvc.Info(c.Request.Context(), req.SubscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

type upcomingInvoiceRequest struct {
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId"`
	Plan           string `json:"newPriceId"`
	Quantity       int64  `json:"quantity"`
}

// RetrieveUpcomingInvoice previews the invoice for a plan or quantity
// change without committing anything at the vendor.
func (s *Server) RetrieveUpcomingInvoice(c *gin.Context) {
	var req upcomingInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	preview, err := s.subscriptionSvc.PreviewChange(c.Request.Context(), subscriptiondomain.PreviewChangeRequest{
		CustomerID:     s.customerID(c, req.CustomerID),
		SubscriptionID: req.SubscriptionID,
		Plan:           req.Plan,
		Quantity:       req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

type updateSubscriptionRequest struct {
	SubscriptionID   string `json:"subscriptionId"`
	Plan             string `json:"newPriceId"`
	Quantity         int64  `json:"quantity"`
	InvoiceProration bool   `json:"invoiceProration"`
}

func (s *Server) UpdateSubscription(c *gin.Context) {
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	applied, err := s.subscriptionSvc.ApplyChange(c.Request.Context(), subscriptiondomain.ApplyChangeRequest{
		SubscriptionID:   req.SubscriptionID,
		Plan:             req.Plan,
		Quantity:         req.Quantity,
		InvoiceProration: req.InvoiceProration,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, applied)
}

type cancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.subscriptionSvc.Cancel(c.Request.Context(), req.SubscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

type retryInvoiceRequest struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
	InvoiceID       string `json:"invoiceId"`
}

func (s *Server) RetryInvoice(c *gin.Context) {
	var req retryInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoice, err := s.subscriptionSvc.RetryInvoice(c.Request.Context(), subscriptiondomain.RetryInvoiceRequest{
		CustomerID:      s.customerID(c, req.CustomerID),
		PaymentMethodID: req.PaymentMethodID,
		InvoiceID:       req.InvoiceID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}
