package model

import (
	"context"

	"github.com/benchkeep/benchkeep"
	"github.com/google/uuid"
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const environmentCollection = "environments"

// Environment is the execution-environment dimension: the lab, rig, or
// cluster a benchmark ran in. Identity is by name only; re-importing an
// existing name reuses the stored row and ignores any differences in the
// other fields (first write wins).
type Environment struct {
	ID       string                 `bson:"_id"`
	Name     string                 `bson:"name"`
	Kind     string                 `bson:"kind,omitempty"`
	Comments string                 `bson:"comments,omitempty"`
	Tools    map[string]interface{} `bson:"tools,omitempty"`
	Metadata map[string]interface{} `bson:"metadata,omitempty"`

	env       benchkeep.Environment
	populated bool
}

var (
	envIDKey       = bsonutil.MustHaveTag(Environment{}, "ID")
	envNameKey     = bsonutil.MustHaveTag(Environment{}, "Name")
	envKindKey     = bsonutil.MustHaveTag(Environment{}, "Kind")
	envCommentsKey = bsonutil.MustHaveTag(Environment{}, "Comments")
	envToolsKey    = bsonutil.MustHaveTag(Environment{}, "Tools")
	envMetadataKey = bsonutil.MustHaveTag(Environment{}, "Metadata")
)

// Setup sets the environment. The environment is required for all storage
// operations on Environment.
func (d *Environment) Setup(e benchkeep.Environment) { d.env = e }

// IsNil returns if the dimension row is populated or not.
func (d *Environment) IsNil() bool { return !d.populated }

// Find searches the database for the dimension row by name. The environment
// should not be nil.
func (d *Environment) Find(ctx context.Context) error {
	if d.env == nil {
		return errors.New("cannot find with a nil environment")
	}

	d.populated = false
	err := d.env.GetDB().Collection(environmentCollection).FindOne(ctx, bson.M{envNameKey: d.Name}).Decode(d)
	if err != nil {
		return errors.Wrapf(err, "finding environment '%s'", d.Name)
	}
	d.populated = true

	return nil
}

// FindEnvironmentByID fetches a dimension row by its ID. A missing row
// yields nil rather than an error.
func FindEnvironmentByID(ctx context.Context, env benchkeep.Environment, id string) (*Environment, error) {
	if env == nil {
		return nil, errors.New("cannot find with a nil environment")
	}

	d := &Environment{env: env}
	err := env.GetDB().Collection(environmentCollection).FindOne(ctx, bson.M{envIDKey: id}).Decode(d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding environment by id '%s'", id)
	}
	d.populated = true

	return d, nil
}

// ResolveEnvironment resolves an environment document to its dimension row,
// creating the row when the name is new. Lookup is by name only: an existing
// name short-circuits and the supplied kind, comments, tools, and metadata
// are discarded.
func ResolveEnvironment(ctx context.Context, env benchkeep.Environment, doc Environment) (*Environment, error) {
	if env == nil {
		return nil, errors.New("cannot resolve with a nil environment")
	}
	if doc.Name == "" {
		return nil, errors.New("cannot resolve an environment without a name")
	}

	existing := &Environment{Name: doc.Name, env: env}
	err := existing.Find(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(errors.Cause(err), mongo.ErrNoDocuments) {
		return nil, errors.WithStack(err)
	}

	doc.ID = uuid.New().String()
	doc.env = env

	_, err = env.GetDB().Collection(environmentCollection).InsertOne(ctx, &doc)
	if mongo.IsDuplicateKeyError(err) {
		if err = existing.Find(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "saving new environment '%s'", doc.Name)
	}

	grip.Debug(message.Fields{
		"collection": environmentCollection,
		"id":         doc.ID,
		"name":       doc.Name,
		"kind":       doc.Kind,
		"op":         "create environment",
	})

	doc.populated = true
	return &doc, nil
}
