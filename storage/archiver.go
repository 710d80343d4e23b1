package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"reviewguard/pipeline"
)

// ObjectPutter is the slice of the S3 client the archiver needs.
type ObjectPutter interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

// AnalysisReport is the archived record of one pipeline run.
type AnalysisReport struct {
	ReportID    string             `json:"report_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Request     pipeline.Request   `json:"request"`
	Response    *pipeline.Response `json:"response"`
}

// Archiver writes a JSON report to S3 for every completed analysis,
// keyed by date for retrieval.
type Archiver struct {
	putter ObjectPutter
	bucket string
	prefix string
}

// NewArchiver creates an archiver writing under bucket/prefix.
func NewArchiver(putter ObjectPutter, bucket, prefix string) *Archiver {
	if prefix == "" {
		prefix = "reports"
	}
	return &Archiver{putter: putter, bucket: bucket, prefix: prefix}
}

// Record archives one analysis. Best effort; failures are logged so a
// bucket outage never affects the caller.
func (a *Archiver) Record(ctx context.Context, req pipeline.Request, resp *pipeline.Response) {
	report := AnalysisReport{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Request:     req,
		Response:    resp,
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to marshal analysis report: %v", err)
		return
	}

	key := reportKey(a.prefix, report.GeneratedAt, report.ReportID)
	if err := a.putter.Put(ctx, a.bucket, key, bytes.NewReader(payload), "application/json"); err != nil {
		log.Printf("Warning: failed to archive analysis report %s: %v", key, err)
		return
	}
	log.Printf("Archived analysis report: s3://%s/%s", a.bucket, key)
}

func reportKey(prefix string, at time.Time, id string) string {
	return fmt.Sprintf("%s/%s/%s.json", prefix, at.Format("2006/01/02"), id)
}
