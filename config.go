package benchkeep

import (
	"errors"
	"time"

	"github.com/mongodb/grip"
)

// Configuration holds the settings needed to stand up the pipeline's shared
// environment. Callers construct one explicitly; there is no file or
// environment-variable loading here.
type Configuration struct {
	MongoDBURI         string
	DatabaseName       string
	MongoDBDialTimeout time.Duration
	SocketTimeout      time.Duration

	// DisableIndexCreation skips index creation during pipeline
	// bootstrap, for deployments that manage indexes out of band.
	DisableIndexCreation bool
}

// Validate checks the configuration and fills in defaults for unset
// durations.
func (c *Configuration) Validate() error {
	catcher := grip.NewBasicCatcher()

	if c.MongoDBURI == "" {
		catcher.Add(errors.New("must specify a mongodb uri"))
	}
	if c.DatabaseName == "" {
		catcher.Add(errors.New("must specify a database name"))
	}
	if c.MongoDBDialTimeout <= 0 {
		c.MongoDBDialTimeout = 2 * time.Second
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = time.Minute
	}

	return catcher.Resolve()
}
