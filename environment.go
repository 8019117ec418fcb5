package benchkeep

import (
	"context"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Environment objects provide access to shared configuration and state, in a
// way that you can isolate and test for in the pipeline's components. Every
// instance is constructed explicitly; components never reach for a global.
type Environment interface {
	Configure(context.Context, *Configuration) error

	GetConf() (*Configuration, error)

	// Context returns a context scoped to the environment's configured
	// socket timeout, for storage operations that are not already bound
	// to a caller context.
	Context() (context.Context, context.CancelFunc)

	GetClient() *mongo.Client
	GetDB() *mongo.Database

	Close(context.Context) error
}

// NewEnvironment constructs and configures an environment, connecting to the
// database described by the configuration.
func NewEnvironment(ctx context.Context, conf *Configuration) (Environment, error) {
	env := &envState{}
	if err := env.Configure(ctx, conf); err != nil {
		return nil, errors.WithStack(err)
	}
	return env, nil
}

type envState struct {
	conf   *Configuration
	client *mongo.Client
	ctx    context.Context
	mutex  sync.RWMutex
}

func (e *envState) Configure(ctx context.Context, conf *Configuration) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.client != nil {
		return errors.New("environment is already configured")
	}
	if err := conf.Validate(); err != nil {
		return errors.WithStack(err)
	}

	e.conf = conf
	e.ctx = ctx

	connectCtx, cancel := context.WithTimeout(ctx, conf.MongoDBDialTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(conf.MongoDBURI).
		SetConnectTimeout(conf.MongoDBDialTimeout).
		SetSocketTimeout(conf.SocketTimeout))
	if err != nil {
		return errors.Wrapf(err, "connecting to db '%s'", conf.MongoDBURI)
	}
	e.client = client

	grip.Debug(message.Fields{
		"message": "configured benchkeep environment",
		"db":      conf.DatabaseName,
	})

	return nil
}

func (e *envState) GetConf() (*Configuration, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.conf == nil {
		return nil, errors.New("configuration is not set")
	}

	// copy the struct
	out := &Configuration{}
	*out = *e.conf

	return out, nil
}

func (e *envState) Context() (context.Context, context.CancelFunc) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return context.WithTimeout(e.ctx, e.conf.SocketTimeout)
}

func (e *envState) GetClient() *mongo.Client {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.client
}

func (e *envState) GetDB() *mongo.Database {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.client == nil || e.conf == nil {
		return nil
	}

	return e.client.Database(e.conf.DatabaseName)
}

func (e *envState) Close(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.client == nil {
		return nil
	}

	err := e.client.Disconnect(ctx)
	e.client = nil

	return errors.Wrap(err, "disconnecting from db")
}
