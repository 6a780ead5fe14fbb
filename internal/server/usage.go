package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/smallbiznis/subgate/internal/usage/domain"
)

type createMeterRequest struct {
	DisplayName string `json:"displayName"`
	EventName   string `json:"eventName"`
}

func (s *Server) CreateMeter(c *gin.Context) {
	var req createMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	meter, err := s.usageSvc.CreateMeter(c.Request.Context(), usagedomain.CreateMeterRequest{
		DisplayName: req.DisplayName,
		EventName:   req.EventName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meter": meter})
}

type createPriceRequest struct {
	ProductName string `json:"productName"`
	MeterID     string `json:"meterId"`
	UnitAmount  int64  `json:"unitAmount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
}

func (s *Server) CreatePrice(c *gin.Context) {
	var req createPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	price, err := s.usageSvc.CreatePrice(c.Request.Context(), usagedomain.CreatePriceRequest{
		ProductName: req.ProductName,
		MeterID:     req.MeterID,
		UnitAmount:  req.UnitAmount,
		Currency:    req.Currency,
		Interval:    req.Interval,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"price": price})
}

type createMeterEventRequest struct {
	EventName  string  `json:"eventName"`
	CustomerID string  `json:"customerId"`
	Value      float64 `json:"value"`
}

func (s *Server) CreateMeterEvent(c *gin.Context) {
	var req createMeterEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.usageSvc.ReportUsage(c.Request.Context(), usagedomain.ReportUsageRequest{
		EventName:  req.EventName,
		CustomerID: s.customerID(c, req.CustomerID),
		Value:      req.Value,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
