/*
Package benchkeep holds shared configuration and state for the benchkeep
ingestion pipeline.

The pipeline turns packaged benchmark output into a star schema: parsed
records are validated against per-test-type schemas, configuration documents
(environment, hardware and software bills of materials) are resolved to
deduplicated dimension rows, and one test run fact plus its type-specific
results row are written in a single transaction.
*/
package benchkeep

// BuildRevision stores the commit in the git repository at build time and is
// specified with -ldflags at build time.
var BuildRevision = ""

const (
	// AuxDateFormat is the timestamp format stamped onto parsed records
	// that arrive without one.
	AuxDateFormat = "2006-01-02T15:04:05"
)
