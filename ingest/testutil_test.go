package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/benchkeep/benchkeep"
	"github.com/benchkeep/benchkeep/model"
	"github.com/benchkeep/benchkeep/parser"
	"github.com/benchkeep/benchkeep/schema"
	"github.com/stretchr/testify/require"
)

func newTestEnv(ctx context.Context, t *testing.T, dbName string) benchkeep.Environment {
	env, err := benchkeep.NewEnvironment(ctx, &benchkeep.Configuration{
		MongoDBURI:    "mongodb://localhost:27017",
		DatabaseName:  dbName,
		SocketTimeout: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, model.EnsureIndexes(ctx, env))

	t.Cleanup(func() {
		require.NoError(t, env.GetDB().Drop(ctx))
		require.NoError(t, env.Close(ctx))
	})

	return env
}

// permissiveSchemas accepts any object for every document kind the pipeline
// validates, so tests can focus on the storage semantics.
func permissiveSchemas(testTypes ...string) schema.MapSource {
	source := schema.MapSource{
		schema.Key("", schema.KindEnvironment): []byte(`{"type": "object"}`),
	}
	for _, testType := range testTypes {
		source[schema.Key(testType, schema.KindResult)] = []byte(`{"type": "object"}`)
	}
	return source
}

func newTestOrchestrator(env benchkeep.Environment, source schema.Source) *Orchestrator {
	return NewOrchestrator(env, parser.DefaultRegistry(), schema.NewValidator(source), DefaultRouter())
}
