package model

import (
	"context"
	"testing"
	"time"

	"github.com/benchkeep/benchkeep"
	"github.com/stretchr/testify/require"
)

// newTestEnv stands up an environment against the local test database,
// creates the required indexes, and tears the database down when the test
// completes.
func newTestEnv(ctx context.Context, t *testing.T, dbName string) benchkeep.Environment {
	env, err := benchkeep.NewEnvironment(ctx, &benchkeep.Configuration{
		MongoDBURI:    "mongodb://localhost:27017",
		DatabaseName:  dbName,
		SocketTimeout: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, EnsureIndexes(ctx, env))

	t.Cleanup(func() {
		require.NoError(t, env.GetDB().Drop(ctx))
		require.NoError(t, env.Close(ctx))
	})

	return env
}
