// Package review provides reviewer feedback storage for abstracted treatment
// lines. Clinical abstractors confirm or correct the engine's regimen calls;
// stored decisions feed knowledge base curation.
package review

import (
	"context"
	"io"
	"time"

	"github.com/therapy-abstraction-server/internal/domain"
)

// Review represents a reviewer's decision on one abstracted treatment line.
type Review struct {
	ID                  int64                  `json:"id,omitempty"`
	PatientID           string                 `json:"patient_id"`
	LineNumber          int                    `json:"line_number"`
	SuggestedRegimen    string                 `json:"suggested_regimen"`          // Engine's call
	SuggestedConfidence domain.MatchConfidence `json:"suggested_confidence"`       // Engine's confidence
	ReviewerRegimen     string                 `json:"reviewer_regimen"`           // Reviewer's decision
	ReviewerAgreed      bool                   `json:"reviewer_agreed"`            // Did the reviewer agree?
	EvidenceSummary     string                 `json:"evidence_summary,omitempty"` // Evidence considered
	Notes               string                 `json:"notes,omitempty"`            // Reviewer notes
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Store defines the interface for review storage operations.
type Store interface {
	// Save stores or updates a review. If a review for the same
	// patient+line exists, it will be updated.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for one abstracted line, nil when none exists.
	Get(ctx context.Context, patientID string, lineNumber int) (*Review, error)

	// List returns all reviews with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all reviews to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports reviews from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// toConfidence restores a stored confidence string, falling back to no_match
// for values written by older releases.
func toConfidence(s string) domain.MatchConfidence {
	mc := domain.MatchConfidence(s)
	if !mc.IsValid() {
		return domain.NO_MATCH
	}
	return mc
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}
