package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"reviewguard/pipeline"
	"reviewguard/types"
)

type fakePutter struct {
	bucket      string
	key         string
	body        []byte
	contentType string
	err         error
	calls       int
}

func (f *fakePutter) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.bucket = bucket
	f.key = key
	f.contentType = contentType
	f.body, _ = io.ReadAll(body)
	return nil
}

func TestRecordArchivesReport(t *testing.T) {
	putter := &fakePutter{}
	archiver := NewArchiver(putter, "reviewguard-reports", "reports")

	req := pipeline.Request{Comments: []string{"Amazing!"}, Product: "shirt"}
	resp := &pipeline.Response{
		Results: []types.TriageResult{
			{ID: "a", Comment: "Amazing!", Label: types.LabelSuspicious, Rationale: "vague"},
		},
	}
	archiver.Record(context.Background(), req, resp)

	if putter.calls != 1 {
		t.Fatalf("expected 1 upload, got %d", putter.calls)
	}
	if putter.bucket != "reviewguard-reports" {
		t.Fatalf("wrong bucket: %s", putter.bucket)
	}
	if putter.contentType != "application/json" {
		t.Fatalf("wrong content type: %s", putter.contentType)
	}
	if !strings.HasPrefix(putter.key, "reports/") || !strings.HasSuffix(putter.key, ".json") {
		t.Fatalf("unexpected key shape: %s", putter.key)
	}

	var report AnalysisReport
	if err := json.Unmarshal(putter.body, &report); err != nil {
		t.Fatalf("archived report is not valid json: %v", err)
	}
	if report.ReportID == "" {
		t.Fatalf("report missing id")
	}
	if report.Request.Product != "shirt" {
		t.Fatalf("request not embedded: %+v", report.Request)
	}
	if len(report.Response.Results) != 1 {
		t.Fatalf("response not embedded: %+v", report.Response)
	}
}

func TestRecordUploadFailureIsSwallowed(t *testing.T) {
	putter := &fakePutter{err: errors.New("bucket unavailable")}
	archiver := NewArchiver(putter, "reviewguard-reports", "")

	// Must not panic or propagate.
	archiver.Record(context.Background(), pipeline.Request{}, &pipeline.Response{})
	if putter.calls != 1 {
		t.Fatalf("expected upload attempt, got %d", putter.calls)
	}
}

func TestReportKeyIsDatePartitioned(t *testing.T) {
	at := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	key := reportKey("reports", at, "abc")
	if key != "reports/2025/03/15/abc.json" {
		t.Fatalf("unexpected key: %s", key)
	}
}
