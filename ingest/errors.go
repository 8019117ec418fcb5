package ingest

import (
	"fmt"

	"github.com/benchkeep/benchkeep/schema"
	"github.com/pkg/errors"
)

// ErrEmptyPackage is returned when a package yields zero records.
var ErrEmptyPackage = errors.New("package contains no parseable records")

// RecordValidation pairs one record's position in the package with its
// validation result.
type RecordValidation struct {
	Index  int
	Result schema.ValidationResult
}

// ValidationReport aggregates per-record validation results for one import.
type ValidationReport struct {
	Records []RecordValidation

	// Environment and BOM hold the validation results for the optional
	// configuration documents, when supplied.
	Environment *schema.ValidationResult
	BOM         *schema.ValidationResult
}

// Valid reports whether every validated document passed.
func (r *ValidationReport) Valid() bool {
	for _, rec := range r.Records {
		if !rec.Result.Valid {
			return false
		}
	}
	if r.Environment != nil && !r.Environment.Valid {
		return false
	}
	if r.BOM != nil && !r.BOM.Valid {
		return false
	}
	return true
}

// Violations flattens every violation in the report, in record order.
func (r *ValidationReport) Violations() []schema.Violation {
	out := []schema.Violation{}
	for _, rec := range r.Records {
		out = append(out, rec.Result.Violations...)
	}
	if r.Environment != nil {
		out = append(out, r.Environment.Violations...)
	}
	if r.BOM != nil {
		out = append(out, r.BOM.Violations...)
	}
	return out
}

// ValidationFailedError reports an import rejected because one or more
// documents failed schema validation. Nothing is written when this error is
// returned.
type ValidationFailedError struct {
	Report *ValidationReport
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed with %d violations", len(e.Report.Violations()))
}

// PersistenceError reports a failure inside the final storage transaction.
// The transaction is fully rolled back before this error surfaces; nothing
// is retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
