package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reviewguard/pipeline"
	"reviewguard/types"
)

// registerCommentRoutes registers corpus ingestion routes.
func (s *Server) registerCommentRoutes(r *gin.Engine) {
	g := r.Group("/comments")
	g.POST("", s.handlePostComments)
	g.GET("/count", s.handleCommentCount)
}

// handlePostComments stores scraped review metadata in the corpus and the
// similarity index. Rows with unusable timestamps are skipped, not
// rejected. With ?analyze=true the batch is also run through the pipeline
// in the background.
func (s *Server) handlePostComments(c *gin.Context) {
	var reviews []types.ReviewMetadata
	if err := c.ShouldBindJSON(&reviews); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sink == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review store not configured"})
		return
	}

	stored, err := s.sink.InsertReviews(c.Request.Context(), reviews)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.indexer != nil {
		if err := s.indexer.AddDocuments(c.Request.Context(), reviews); err != nil {
			// The store is the source of truth; index lag is tolerable.
			log.Printf("Warning: similarity index update failed: %v", err)
		}
	}

	if c.Query("analyze") == "true" {
		go s.analyzeInBackground(reviews)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "received",
		"received": len(reviews),
		"stored":   stored,
	})
}

// analyzeInBackground runs freshly ingested reviews through the pipeline
// so recorders see them without a separate /analyze call.
func (s *Server) analyzeInBackground(reviews []types.ReviewMetadata) {
	req := pipeline.Request{}
	for _, r := range reviews {
		if r.Comment == "" {
			continue
		}
		req.Comments = append(req.Comments, r.Comment)
		req.Metadata = append(req.Metadata, r)
	}
	if len(req.Comments) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp := s.analyzer.Analyze(ctx, req)
	log.Printf("Background analysis complete: %d results, %d suspicious",
		len(resp.Results), len(resp.SuspiciousComments))

	for _, rec := range s.recorders {
		rec.Record(ctx, req, resp)
	}
}

// handleCommentCount reports the corpus size.
func (s *Server) handleCommentCount(c *gin.Context) {
	if s.sink == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review store not configured"})
		return
	}

	count, err := s.sink.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
