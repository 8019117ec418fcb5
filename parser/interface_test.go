package parser

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("DefaultRegistersShippedParsers", func(t *testing.T) {
		r := DefaultRegistry()
		assert.Equal(t, []string{"cpu_latency", "cpu_mem", "memory_bandwidth"}, r.TestTypes())
		assert.True(t, r.IsSupported("cpu_mem"))
		assert.False(t, r.IsSupported("network"))
	})
	t.Run("GetReturnsRegisteredParser", func(t *testing.T) {
		r := DefaultRegistry()
		p, err := r.Get("cpu_latency")
		require.NoError(t, err)
		assert.Equal(t, "cpu_latency", p.TestType())
	})
	t.Run("GetUnknownTypeErrors", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Get("unregistered")
		require.Error(t, err)
		assert.True(t, errors.Is(errors.Cause(err), ErrUnknownTestType))
	})
	t.Run("LastRegistrationWins", func(t *testing.T) {
		r := NewRegistry()
		r.Register(NewCPUMemParser())

		replacement := &fileParser{testType: "cpu_mem", extensions: []string{".ndjson"}}
		r.Register(replacement)

		p, err := r.Get("cpu_mem")
		require.NoError(t, err)
		assert.Equal(t, []string{".ndjson"}, p.SupportedExtensions())
	})
}

func TestExtensionMatching(t *testing.T) {
	assert.Equal(t, ".json", extensionOf("results.json"))
	assert.Equal(t, ".json", extensionOf("RESULTS.JSON"))
	assert.Equal(t, ".gz", extensionOf("results.tar.gz"))
	assert.Equal(t, "", extensionOf("results"))

	assert.True(t, hasExtension("a.csv", []string{".json", ".csv"}))
	assert.False(t, hasExtension("a.tsv", []string{".json", ".csv"}))
}
