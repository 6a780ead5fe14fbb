package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetConfig exposes what a billing frontend needs to bootstrap: the
// vendor's publishable key and the plan catalog.
func (s *Server) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"publishableKey": s.cfg.Billing.PublishableKey,
		"plans":          s.catalogSvc.List(),
	})
}
