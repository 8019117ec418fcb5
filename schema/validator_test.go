package schema

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cpuMemSchema = `{
	"type": "object",
	"required": ["sysbench_cpu_events_per_second"],
	"properties": {
		"sysbench_cpu_events_per_second": {"type": "number"},
		"sysbench_cpu_test_mode": {"type": "string"}
	}
}`

const environmentSchema = `{
	"type": "object",
	"required": ["name", "kind"],
	"properties": {
		"name": {"type": "string"},
		"kind": {"type": "string"}
	}
}`

func TestValidateRecord(t *testing.T) {
	v := NewValidator(MapSource{
		Key("cpu_mem", KindResult): []byte(cpuMemSchema),
	})

	t.Run("ValidRecord", func(t *testing.T) {
		result, err := v.ValidateRecord("cpu_mem", map[string]interface{}{
			"sysbench_cpu_events_per_second": 10741.25,
			"sysbench_cpu_test_mode":         "standard",
		})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Violations)
	})
	t.Run("CollectsAllViolations", func(t *testing.T) {
		result, err := v.ValidateRecord("cpu_mem", map[string]interface{}{
			"sysbench_cpu_test_mode": 42,
		})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		// missing required field plus wrong type
		assert.Len(t, result.Violations, 2)
		for _, violation := range result.Violations {
			assert.NotEmpty(t, violation.Message)
		}
	})
	t.Run("MissingResultSchemaIsHardError", func(t *testing.T) {
		_, err := v.ValidateRecord("unknown_type", map[string]interface{}{})
		require.Error(t, err)
		assert.True(t, errors.Is(errors.Cause(err), ErrSchemaNotFound))
	})
	t.Run("CorruptSchemaIsHardError", func(t *testing.T) {
		broken := NewValidator(MapSource{
			Key("cpu_mem", KindResult): []byte(`{"type": 42}`),
		})
		_, err := broken.ValidateRecord("cpu_mem", map[string]interface{}{})
		require.Error(t, err)
		assert.True(t, errors.Is(errors.Cause(err), ErrInvalidSchema))
	})
}

func TestValidateEnvironment(t *testing.T) {
	t.Run("UsesRegisteredSchema", func(t *testing.T) {
		v := NewValidator(MapSource{
			Key("", KindEnvironment): []byte(environmentSchema),
		})

		result, err := v.ValidateEnvironment(map[string]interface{}{"name": "lab-1", "kind": "baremetal"})
		require.NoError(t, err)
		assert.True(t, result.Valid)

		result, err = v.ValidateEnvironment(map[string]interface{}{"name": "lab-1"})
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})
	t.Run("FallsBackToBasicValidation", func(t *testing.T) {
		v := NewValidator(MapSource{})

		result, err := v.ValidateEnvironment(map[string]interface{}{"name": "lab-1", "kind": "vm"})
		require.NoError(t, err)
		assert.True(t, result.Valid)

		result, err = v.ValidateEnvironment(map[string]interface{}{"kind": 7})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Len(t, result.Violations, 2)
	})
}

func TestValidateBOM(t *testing.T) {
	v := NewValidator(MapSource{})

	t.Run("BasicValidationRequiresSection", func(t *testing.T) {
		result, err := v.ValidateBOM("cpu_mem", map[string]interface{}{})
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})
	t.Run("BasicValidationRequiresSpecs", func(t *testing.T) {
		result, err := v.ValidateBOM("cpu_mem", map[string]interface{}{
			"hardware": map[string]interface{}{"comment": "no specs here"},
		})
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})
	t.Run("ValidDocument", func(t *testing.T) {
		result, err := v.ValidateBOM("cpu_mem", map[string]interface{}{
			"hardware": map[string]interface{}{
				"specs": map[string]interface{}{"cpu": "EPYC 9654"},
			},
			"software": map[string]interface{}{
				"specs": map[string]interface{}{"kernel": "6.8.0"},
			},
		})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})
}

func TestFileSource(t *testing.T) {
	root, err := ioutil.TempDir("", "benchkeep-schema-test-")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, os.RemoveAll(root))
	}()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "test_types", "cpu_mem"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "contracts"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "test_types", "cpu_mem", "schema.json"), []byte(cpuMemSchema), 0600))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "contracts", "environment_schema.json"), []byte(environmentSchema), 0600))

	source := &FileSource{Root: root}

	t.Run("ResolvesResultSchema", func(t *testing.T) {
		data, err := source.Resolve("cpu_mem", KindResult)
		require.NoError(t, err)
		assert.Equal(t, []byte(cpuMemSchema), data)
	})
	t.Run("ResolvesEnvironmentSchema", func(t *testing.T) {
		data, err := source.Resolve("", KindEnvironment)
		require.NoError(t, err)
		assert.Equal(t, []byte(environmentSchema), data)
	})
	t.Run("MissingSchemaIsNotFound", func(t *testing.T) {
		_, err := source.Resolve("cpu_mem", KindBOM)
		require.Error(t, err)
		assert.True(t, errors.Is(errors.Cause(err), ErrSchemaNotFound))
	})
	t.Run("UnrecognizedKindErrors", func(t *testing.T) {
		_, err := source.Resolve("cpu_mem", "bogus")
		assert.Error(t, err)
	})
}
