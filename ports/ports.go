// Package ports defines the contracts between the validation engine and
// the infrastructure around it. Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/aurabx/harmony-dsl/core/validation"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers for reports and requests.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// StoredReport is a validation report as kept in the audit log.
type StoredReport struct {
	ID              string                  `json:"id"`
	Domain          string                  `json:"domain"`
	SchemaVersion   string                  `json:"schema_version"`
	DeclaredVersion string                  `json:"declared_version,omitempty"`
	Valid           bool                    `json:"valid"`
	Diagnostics     []validation.Diagnostic `json:"diagnostics"`

	// Source names where the document came from (a file path or "http").
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStoredReport flattens a report for storage.
func NewStoredReport(rep *validation.Report, source string, at time.Time) StoredReport {
	return StoredReport{
		ID:              rep.ID,
		Domain:          string(rep.Domain),
		SchemaVersion:   rep.SchemaVersion,
		DeclaredVersion: rep.DeclaredVersion,
		Valid:           rep.Valid(),
		Diagnostics:     rep.Diagnostics,
		Source:          source,
		CreatedAt:       at,
	}
}

// ReportStore persists validation reports.
type ReportStore interface {
	// Save stores a report. The ID must be set.
	Save(ctx context.Context, r StoredReport) error

	// Get retrieves a report by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (StoredReport, error)

	// List returns the most recent reports, newest first. An empty domain
	// lists every domain.
	List(ctx context.Context, domain string, limit int) ([]StoredReport, error)
}
