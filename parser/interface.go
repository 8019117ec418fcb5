package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Record is one normalized, semi-structured result parsed from a package
// file. Numeric values are json.Number so that canonicalization downstream
// is independent of float formatting.
type Record map[string]interface{}

// Parser turns the files of one result package into normalized records for
// a single test type.
type Parser interface {
	TestType() string
	SupportedExtensions() []string

	// IsValidFile reports whether a file name carries one of the
	// parser's supported extensions.
	IsValidFile(name string) bool

	// ParseFile parses a single result file.
	ParseFile(data []byte, name string) (Record, error)

	// ParsePackage walks every file in the package, skips files whose
	// extension is unsupported, and parses the rest. The first
	// unparseable file fails the whole package with a ParseError naming
	// the file.
	ParsePackage(ctx context.Context, pkg Package) ([]Record, error)
}

// ParseError reports a file that could not be parsed.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing file '%s': %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrUnknownTestType is returned when no parser is registered for a test
// type.
var ErrUnknownTestType = errors.New("unknown test type")

// Registry maps test type names to parsers. Registries are constructed and
// passed in explicitly; there is no process-wide registry, so tests can
// build isolated instances.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// DefaultRegistry returns a registry with the shipped parsers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewCPUMemParser())
	r.Register(NewCPULatencyParser())
	r.Register(NewMemoryBandwidthParser())
	return r
}

// Register associates a parser with its test type. The last registration
// for a given name wins.
func (r *Registry) Register(p Parser) {
	r.parsers[p.TestType()] = p
}

// IsSupported reports whether a parser is registered for the test type.
func (r *Registry) IsSupported(testType string) bool {
	_, ok := r.parsers[testType]
	return ok
}

// Get returns the parser for a test type, or ErrUnknownTestType.
func (r *Registry) Get(testType string) (Parser, error) {
	p, ok := r.parsers[testType]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTestType, "'%s'", testType)
	}
	return p, nil
}

// TestTypes returns the registered test type names, sorted.
func (r *Registry) TestTypes() []string {
	out := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// extensionOf returns the lowercased extension of a file name, including
// the dot.
func extensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx:])
}

func hasExtension(name string, extensions []string) bool {
	ext := extensionOf(name)
	for _, supported := range extensions {
		if ext == supported {
			return true
		}
	}
	return false
}
