package benchkeep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationValidate(t *testing.T) {
	t.Run("ValidWithDefaults", func(t *testing.T) {
		conf := &Configuration{
			MongoDBURI:   "mongodb://localhost:27017",
			DatabaseName: "benchkeep_test",
		}
		require.NoError(t, conf.Validate())
		assert.Equal(t, 2*time.Second, conf.MongoDBDialTimeout)
		assert.Equal(t, time.Minute, conf.SocketTimeout)
	})
	t.Run("ExplicitTimeoutsKept", func(t *testing.T) {
		conf := &Configuration{
			MongoDBURI:         "mongodb://localhost:27017",
			DatabaseName:       "benchkeep_test",
			MongoDBDialTimeout: 5 * time.Second,
			SocketTimeout:      2 * time.Minute,
		}
		require.NoError(t, conf.Validate())
		assert.Equal(t, 5*time.Second, conf.MongoDBDialTimeout)
		assert.Equal(t, 2*time.Minute, conf.SocketTimeout)
	})
	t.Run("MissingURI", func(t *testing.T) {
		conf := &Configuration{DatabaseName: "benchkeep_test"}
		assert.Error(t, conf.Validate())
	})
	t.Run("MissingDatabaseName", func(t *testing.T) {
		conf := &Configuration{MongoDBURI: "mongodb://localhost:27017"}
		assert.Error(t, conf.Validate())
	})
}
