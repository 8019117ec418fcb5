package schema

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Schema kinds resolvable from a Source. Result and BOM schemas are
// per-test-type; the environment schema is shared.
const (
	KindResult      = "result"
	KindBOM         = "bom"
	KindEnvironment = "environment"
)

// ErrSchemaNotFound is returned when no schema document is registered for a
// key.
var ErrSchemaNotFound = errors.New("schema not found")

// ErrInvalidSchema is returned when a schema document exists but is not
// itself a valid JSON Schema.
var ErrInvalidSchema = errors.New("invalid schema document")

// Source resolves a schema document by test type and kind. Implementations
// may read the file system, embedded resources, or a remote store.
type Source interface {
	Resolve(testType, kind string) ([]byte, error)
}

// FileSource resolves schemas from a directory tree laid out as
// test_types/<type>/schema.json, test_types/<type>/bom_schema.json, and
// contracts/environment_schema.json.
type FileSource struct {
	Root string
}

// Resolve implements Source.
func (s *FileSource) Resolve(testType, kind string) ([]byte, error) {
	var path string
	switch kind {
	case KindResult:
		path = filepath.Join(s.Root, "test_types", testType, "schema.json")
	case KindBOM:
		path = filepath.Join(s.Root, "test_types", testType, "bom_schema.json")
	case KindEnvironment:
		path = filepath.Join(s.Root, "contracts", "environment_schema.json")
	default:
		return nil, errors.Errorf("unrecognized schema kind '%s'", kind)
	}

	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrSchemaNotFound, "no schema at '%s'", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema '%s'", path)
	}

	return data, nil
}

// MapSource resolves schemas from an in-memory map keyed by
// "<testType>/<kind>" ("environment" documents use the bare kind as key).
// Primarily for tests.
type MapSource map[string][]byte

// Key builds the lookup key MapSource uses for a test type and kind.
func Key(testType, kind string) string {
	if kind == KindEnvironment {
		return KindEnvironment
	}
	return fmt.Sprintf("%s/%s", testType, kind)
}

// Resolve implements Source.
func (s MapSource) Resolve(testType, kind string) ([]byte, error) {
	data, ok := s[Key(testType, kind)]
	if !ok {
		return nil, errors.Wrapf(ErrSchemaNotFound, "no schema for '%s'", Key(testType, kind))
	}
	return data, nil
}
