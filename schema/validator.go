package schema

import (
	"sort"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Violation is one schema violation at a path within the validated
// document.
type Violation struct {
	Path    string
	Message string
}

// ValidationResult reports the outcome of validating one document. A failed
// validation is a value, not an error; errors are reserved for
// infrastructure failures (missing or corrupt schemas).
type ValidationResult struct {
	Valid      bool
	Violations []Violation
}

// Validator validates records and configuration documents against the
// schemas a Source resolves. Compiled schemas are cached by key for the
// life of the validator. Construct one per pipeline; there is no global
// instance.
type Validator struct {
	source Source

	mu    sync.Mutex
	cache map[string]*gojsonschema.Schema
}

// NewValidator constructs a validator over a schema source.
func NewValidator(source Source) *Validator {
	return &Validator{
		source: source,
		cache:  map[string]*gojsonschema.Schema{},
	}
}

// ValidateRecord applies the test type's result schema to a parsed record.
func (v *Validator) ValidateRecord(testType string, record map[string]interface{}) (*ValidationResult, error) {
	compiled, err := v.load(testType, KindResult)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return v.validate(compiled, record)
}

// ValidateBOM applies the test type's BOM schema to a BOM document. When no
// BOM schema is registered for the test type, a basic structural check is
// applied instead.
func (v *Validator) ValidateBOM(testType string, doc map[string]interface{}) (*ValidationResult, error) {
	compiled, err := v.load(testType, KindBOM)
	if errors.Is(errors.Cause(err), ErrSchemaNotFound) {
		grip.Debug(message.Fields{
			"message":   "no BOM schema registered, applying basic validation",
			"test_type": testType,
		})
		return basicBOMValidation(doc), nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return v.validate(compiled, doc)
}

// ValidateEnvironment applies the shared environment schema to an
// environment document, falling back to a basic structural check when none
// is registered.
func (v *Validator) ValidateEnvironment(doc map[string]interface{}) (*ValidationResult, error) {
	compiled, err := v.load("", KindEnvironment)
	if errors.Is(errors.Cause(err), ErrSchemaNotFound) {
		grip.Debug(message.Fields{
			"message": "no environment schema registered, applying basic validation",
		})
		return basicEnvironmentValidation(doc), nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return v.validate(compiled, doc)
}

func (v *Validator) load(testType, kind string) (*gojsonschema.Schema, error) {
	key := Key(testType, kind)

	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok := v.cache[key]; ok {
		return compiled, nil
	}

	raw, err := v.source.Resolve(testType, kind)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "compiling schema '%s': %v", key, err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

func (v *Validator) validate(compiled *gojsonschema.Schema, doc interface{}) (*ValidationResult, error) {
	result, err := compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, errors.Wrap(err, "running schema validation")
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}, nil
	}

	out := &ValidationResult{Violations: make([]Violation, 0, len(result.Errors()))}
	for _, resultErr := range result.Errors() {
		out.Violations = append(out.Violations, Violation{
			Path:    resultErr.Field(),
			Message: resultErr.Description(),
		})
	}
	sort.SliceStable(out.Violations, func(i, j int) bool {
		return out.Violations[i].Path < out.Violations[j].Path
	})

	return out, nil
}

func basicEnvironmentValidation(doc map[string]interface{}) *ValidationResult {
	out := &ValidationResult{}

	for _, field := range []string{"name", "kind"} {
		raw, ok := doc[field]
		if !ok {
			out.Violations = append(out.Violations, Violation{Path: field, Message: "required field is missing"})
			continue
		}
		if _, ok := raw.(string); !ok {
			out.Violations = append(out.Violations, Violation{Path: field, Message: "field must be a string"})
		}
	}
	for _, field := range []string{"tools", "metadata"} {
		if raw, ok := doc[field]; ok {
			if _, isMap := raw.(map[string]interface{}); !isMap {
				out.Violations = append(out.Violations, Violation{Path: field, Message: "field must be an object"})
			}
		}
	}

	out.Valid = len(out.Violations) == 0
	return out
}

func basicBOMValidation(doc map[string]interface{}) *ValidationResult {
	out := &ValidationResult{}

	_, hasHardware := doc["hardware"]
	_, hasSoftware := doc["software"]
	if !hasHardware && !hasSoftware {
		out.Violations = append(out.Violations, Violation{
			Path:    "(root)",
			Message: "BOM must contain a hardware or software section",
		})
	}

	for _, section := range []string{"hardware", "software"} {
		raw, ok := doc[section]
		if !ok {
			continue
		}
		asMap, isMap := raw.(map[string]interface{})
		if !isMap {
			out.Violations = append(out.Violations, Violation{Path: section, Message: "section must be an object"})
			continue
		}
		if _, hasSpecs := asMap["specs"]; !hasSpecs {
			out.Violations = append(out.Violations, Violation{Path: section, Message: "section must contain specs"})
		}
	}

	out.Valid = len(out.Violations) == 0
	return out
}
