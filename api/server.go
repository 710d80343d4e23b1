package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"reviewguard/pipeline"
	"reviewguard/types"
)

// Analyzer runs the review pipeline for one request.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) *pipeline.Response
}

// ReviewSink persists incoming review metadata into the corpus.
type ReviewSink interface {
	InsertReviews(ctx context.Context, reviews []types.ReviewMetadata) (int, error)
	Count(ctx context.Context) (int, error)
}

// Indexer adds review documents to the similarity index.
type Indexer interface {
	AddDocuments(ctx context.Context, reviews []types.ReviewMetadata) error
}

// Recorder receives a completed analysis for out-of-band handling, such
// as audit publishing or report archival. Recording is best effort and
// never blocks the response.
type Recorder interface {
	Record(ctx context.Context, req pipeline.Request, resp *pipeline.Response)
}

// Server exposes the pipeline over HTTP.
type Server struct {
	analyzer  Analyzer
	sink      ReviewSink
	indexer   Indexer
	recorders []Recorder
}

// NewServer wires the HTTP surface. sink and indexer may be nil when the
// corresponding backend is not configured.
func NewServer(analyzer Analyzer, sink ReviewSink, indexer Indexer, recorders ...Recorder) *Server {
	return &Server{
		analyzer:  analyzer,
		sink:      sink,
		indexer:   indexer,
		recorders: recorders,
	}
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	s.registerHealthRoutes(r)
	s.registerAnalysisRoutes(r)
	s.registerCommentRoutes(r)
	return r
}
