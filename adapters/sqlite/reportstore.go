package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aurabx/harmony-dsl/core/validation"
	"github.com/aurabx/harmony-dsl/ports"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// ReportStore implements ports.ReportStore using SQLite.
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new SQLite report store.
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save stores a report.
func (s *ReportStore) Save(ctx context.Context, r ports.StoredReport) error {
	if r.ID == "" {
		return errors.New("save report: empty id")
	}
	diags := r.Diagnostics
	if diags == nil {
		diags = []validation.Diagnostic{}
	}
	encoded, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO validation_reports
			(id, domain, schema_version, declared_version, valid, diagnostic_count, diagnostics, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Domain, r.SchemaVersion, r.DeclaredVersion, r.Valid, len(diags), string(encoded), r.Source, r.CreatedAt.UTC())
	return err
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (ports.StoredReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, domain, schema_version, declared_version, valid, diagnostics, source, created_at
		FROM validation_reports
		WHERE id = ?
	`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.StoredReport{}, ports.ErrNotFound
	}
	return r, err
}

// List returns the most recent reports, newest first.
func (s *ReportStore) List(ctx context.Context, domain string, limit int) ([]ports.StoredReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, schema_version, declared_version, valid, diagnostics, source, created_at
		FROM validation_reports
		WHERE ? = '' OR domain = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, domain, domain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []ports.StoredReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (ports.StoredReport, error) {
	var r ports.StoredReport
	var diags string
	err := row.Scan(&r.ID, &r.Domain, &r.SchemaVersion, &r.DeclaredVersion, &r.Valid, &diags, &r.Source, &r.CreatedAt)
	if err != nil {
		return ports.StoredReport{}, err
	}
	if err := json.Unmarshal([]byte(diags), &r.Diagnostics); err != nil {
		return ports.StoredReport{}, fmt.Errorf("decode diagnostics of report %s: %w", r.ID, err)
	}
	return r, nil
}

// Ensure interface compliance.
var _ ports.ReportStore = (*ReportStore)(nil)
