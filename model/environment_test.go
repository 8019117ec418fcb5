package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnvironment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(ctx, t, "benchkeep_test_environment")

	t.Run("CreatesOnFirstUse", func(t *testing.T) {
		dim, err := ResolveEnvironment(ctx, env, Environment{
			Name: "perf-lab-1",
			Kind: "baremetal",
			Tools: map[string]interface{}{
				"sysbench": "1.0.20",
			},
		})
		require.NoError(t, err)
		assert.False(t, dim.IsNil())
		assert.Equal(t, "perf-lab-1", dim.Name)
		assert.Equal(t, "baremetal", dim.Kind)
		assert.NotEmpty(t, dim.ID)
	})
	t.Run("IgnoresContentChangesForExistingName", func(t *testing.T) {
		first, err := ResolveEnvironment(ctx, env, Environment{
			Name:     "perf-lab-2",
			Kind:     "baremetal",
			Comments: "original",
		})
		require.NoError(t, err)

		// same name, different everything else: first write wins
		second, err := ResolveEnvironment(ctx, env, Environment{
			Name:     "perf-lab-2",
			Kind:     "vm",
			Comments: "changed",
			Metadata: map[string]interface{}{"rack": "b4"},
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "baremetal", second.Kind)
		assert.Equal(t, "original", second.Comments)
		assert.Nil(t, second.Metadata)
	})
	t.Run("DistinctNamesDistinctRows", func(t *testing.T) {
		first, err := ResolveEnvironment(ctx, env, Environment{Name: "perf-lab-3"})
		require.NoError(t, err)

		second, err := ResolveEnvironment(ctx, env, Environment{Name: "perf-lab-4"})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
	})
	t.Run("MissingNameErrors", func(t *testing.T) {
		_, err := ResolveEnvironment(ctx, env, Environment{Kind: "vm"})
		assert.Error(t, err)
	})
}
