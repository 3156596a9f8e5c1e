package sqlite

import (
	"database/sql"
	"time"

	"feaprep/internal/domain"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Timestamps are stored as RFC 3339 text in UTC so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeToText(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func textToTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// ============================================================================
// Run Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between runColumns, scanArgs() and
// runInsertArgs().

const runColumns = `id, model, fingerprint, tool, digest, output_dir,
	nodes, elements, materials, loads, status, error, created_at`

// runRow holds all columns from a run query for scanning
type runRow struct {
	ID          string
	Model       string
	Fingerprint string
	Tool        string
	Digest      sql.NullString
	OutputDir   sql.NullString
	Nodes       int
	Elements    int
	Materials   int
	Loads       int
	Status      string
	Error       sql.NullString
	CreatedAt   string
}

// scanArgs returns pointers for rows.Scan in column order
func (r *runRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID, &r.Model, &r.Fingerprint, &r.Tool, &r.Digest, &r.OutputDir,
		&r.Nodes, &r.Elements, &r.Materials, &r.Loads, &r.Status, &r.Error, &r.CreatedAt,
	}
}

// toDomain converts the row to a domain.Run
func (r *runRow) toDomain() (domain.Run, error) {
	created, err := textToTime(r.CreatedAt)
	if err != nil {
		return domain.Run{}, err
	}
	return domain.Run{
		ID:          r.ID,
		Model:       r.Model,
		Fingerprint: r.Fingerprint,
		Tool:        r.Tool,
		Digest:      nullToString(r.Digest),
		OutputDir:   nullToString(r.OutputDir),
		Summary: domain.Summary{
			Nodes:     r.Nodes,
			Elements:  r.Elements,
			Materials: r.Materials,
			Loads:     r.Loads,
		},
		Status:    domain.RunStatus(r.Status),
		Error:     nullToString(r.Error),
		CreatedAt: created,
	}, nil
}

// runInsertArgs returns insert values in column order
func runInsertArgs(run *domain.Run) []interface{} {
	return []interface{}{
		run.ID, run.Model, run.Fingerprint, run.Tool,
		stringToNull(run.Digest), stringToNull(run.OutputDir),
		run.Summary.Nodes, run.Summary.Elements, run.Summary.Materials, run.Summary.Loads,
		string(run.Status), stringToNull(run.Error), timeToText(run.CreatedAt),
	}
}
