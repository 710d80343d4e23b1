package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reviewguard/pipeline"
)

// registerAnalysisRoutes registers the pipeline entry point.
func (s *Server) registerAnalysisRoutes(r *gin.Engine) {
	r.POST("/analyze", s.handleAnalyze)
}

// handleAnalyze runs the full pipeline on a batch of comments and returns
// the triage results plus the deep-dive output for suspicious ones.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Metadata) > 0 && len(req.Metadata) != len(req.Comments) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metadata must match comments by position"})
		return
	}

	resp := s.analyzer.Analyze(c.Request.Context(), req)

	// Recorders run detached so a slow broker or bucket never delays the
	// caller.
	for _, rec := range s.recorders {
		go func(rec Recorder) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			rec.Record(ctx, req, resp)
		}(rec)
	}

	c.JSON(http.StatusOK, resp)
}
