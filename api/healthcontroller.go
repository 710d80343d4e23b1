package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerHealthRoutes registers liveness endpoints.
func (s *Server) registerHealthRoutes(r *gin.Engine) {
	r.GET("/", s.handleHealth)
	r.GET("/health", s.handleHealth)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
