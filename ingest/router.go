package ingest

import (
	"sort"

	"github.com/benchkeep/benchkeep/parser"
)

// Aggregator turns the N records of one test run into the single flattened
// row its results collection expects.
type Aggregator interface {
	// Collection names the results collection rows are written to.
	Collection() string

	// Aggregate combines the records into one row keyed by the test run
	// ID. Later records win per field; unrecognized fields are dropped.
	Aggregate(testRunID string, records []parser.Record) (interface{}, error)
}

// Router maps test types to result aggregators. Like the parser registry it
// is constructed and passed in; a test type without a handler degrades to a
// fact-only import rather than failing.
type Router struct {
	handlers map[string]Aggregator
}

// NewRouter constructs an empty router.
func NewRouter() *Router {
	return &Router{handlers: map[string]Aggregator{}}
}

// DefaultRouter returns a router with the shipped aggregators registered.
// The cpu_latency and memory_bandwidth test types have no handlers; their
// runs import as facts only until a results collection exists for them.
func DefaultRouter() *Router {
	r := NewRouter()
	r.Register("cpu_mem", NewCPUMemAggregator())
	r.Register("network", NewNetworkAggregator())
	return r
}

// Register associates an aggregator with a test type. The last registration
// for a given name wins.
func (r *Router) Register(testType string, agg Aggregator) {
	r.handlers[testType] = agg
}

// HasHandler reports whether a test type has a registered aggregator.
func (r *Router) HasHandler(testType string) bool {
	_, ok := r.handlers[testType]
	return ok
}

// Get returns the aggregator for a test type, or nil when none is
// registered.
func (r *Router) Get(testType string) Aggregator {
	return r.handlers[testType]
}

// Collections returns every distinct results collection the router routes
// to, sorted. Cascade deletion of a test run covers these collections.
func (r *Router) Collections() []string {
	seen := map[string]struct{}{}
	for _, agg := range r.handlers {
		seen[agg.Collection()] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for coll := range seen {
		out = append(out, coll)
	}
	sort.Strings(out)

	return out
}
