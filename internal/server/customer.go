package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// customerCookie keeps the demo flows stateless server-side: the created
// customer id rides along in a cookie instead of a session store.
const customerCookie = "customer"

type createCustomerRequest struct {
	Email string `json:"email"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("email", "invalid_request", "invalid request"))
		return
	}

	customer, err := s.subscriptionSvc.CreateCustomer(c.Request.Context(), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.SetCookie(customerCookie, customer.ID, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// customerID resolves the acting customer from the request body value or,
// failing that, the cookie set at customer creation.
func (s *Server) customerID(c *gin.Context, bodyValue string) string {
	if id := strings.TrimSpace(bodyValue); id != "" {
		return id
	}
	if id, err := c.Cookie(customerCookie); err == nil {
		return strings.TrimSpace(id)
	}
	return ""
}
