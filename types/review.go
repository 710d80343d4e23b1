package types

import (
	"github.com/google/uuid"
)

// Label is the first-pass triage classification of a review.
type Label string

const (
	LabelGenuine     Label = "Genuine"
	LabelSuspicious  Label = "Suspicious"
	LabelNotRelevant Label = "NotRelevant"
	LabelUnknown     Label = "Unknown"
)

// Verdict is the final authenticity decision for a suspicious review.
type Verdict string

const (
	VerdictGenuine Verdict = "Genuine"
	VerdictFake    Verdict = "Fake"
	VerdictUnknown Verdict = "Unknown"
)

// ReviewItem is one review entering the pipeline. ID is a correlation id
// assigned at ingestion so that two reviews with identical text stay
// distinguishable through every stage.
type ReviewItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	Product  string `json:"product,omitempty"`
}

// ReviewMetadata is the stored corpus shape for one review. This is the
// single canonical metadata shape: a list parallel to the comments list,
// matched by position.
type ReviewMetadata struct {
	Comment   string  `json:"comment"`
	Username  string  `json:"username,omitempty"`
	Rating    float64 `json:"rating,omitempty"`
	Source    string  `json:"source,omitempty"`
	Product   string  `json:"product,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// TriageResult is the per-item outcome of the batch triage stage.
// Verdict and Explanation stay empty until the merge step overlays the
// fusion output for suspicious items.
type TriageResult struct {
	ID          string  `json:"id"`
	Comment     string  `json:"comment"`
	Label       Label   `json:"label"`
	Rationale   string  `json:"rationale"`
	Username    string  `json:"username,omitempty"`
	Verdict     Verdict `json:"verdict,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
}

// EvidenceBundle packages the similarity and behavioral signals gathered
// for one suspicious review. SimilarityScores may be empty when the index
// is unavailable; BehavioralFlags holds the names of heuristics that fired.
type EvidenceBundle struct {
	ID               string    `json:"id"`
	Comment          string    `json:"comment"`
	Username         string    `json:"username,omitempty"`
	SimilarityScores []float64 `json:"similarity_scores"`
	BehavioralFlags  []string  `json:"behavioral_flags"`
	Verdict          Verdict   `json:"verdict,omitempty"`
	Explanation      string    `json:"explanation,omitempty"`
}

// VerdictResult is the terminal fusion output for one evidence bundle.
type VerdictResult struct {
	ID          string  `json:"id"`
	Comment     string  `json:"comment"`
	Verdict     Verdict `json:"verdict"`
	Explanation string  `json:"explanation"`
}

// NewItemID creates a fresh correlation id for an incoming review.
func NewItemID() string {
	return uuid.NewString()
}
