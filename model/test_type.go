package model

import (
	"context"
	"fmt"

	"github.com/benchkeep/benchkeep"
	"github.com/google/uuid"
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const testTypeCollection = "test_types"

// TestType describes one family of benchmark tests. Rows are created on
// first use of a new name and are immutable afterwards.
type TestType struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`

	env       benchkeep.Environment
	populated bool
}

var (
	testTypeIDKey          = bsonutil.MustHaveTag(TestType{}, "ID")
	testTypeNameKey        = bsonutil.MustHaveTag(TestType{}, "Name")
	testTypeDescriptionKey = bsonutil.MustHaveTag(TestType{}, "Description")
)

// Setup sets the environment. The environment is required for all storage
// operations on TestType.
func (t *TestType) Setup(e benchkeep.Environment) { t.env = e }

// IsNil returns if the test type is populated or not.
func (t *TestType) IsNil() bool { return !t.populated }

// Find searches the database for the test type by name. The environment
// should not be nil.
func (t *TestType) Find(ctx context.Context) error {
	if t.env == nil {
		return errors.New("cannot find with a nil environment")
	}

	t.populated = false
	err := t.env.GetDB().Collection(testTypeCollection).FindOne(ctx, bson.M{testTypeNameKey: t.Name}).Decode(t)
	if err != nil {
		return errors.Wrapf(err, "finding test type '%s'", t.Name)
	}
	t.populated = true

	return nil
}

// FindTestTypeByID fetches a test type row by its ID. A missing row yields
// nil rather than an error, since fact rows may reference types that have
// since been removed.
func FindTestTypeByID(ctx context.Context, env benchkeep.Environment, id string) (*TestType, error) {
	if env == nil {
		return nil, errors.New("cannot find with a nil environment")
	}

	t := &TestType{env: env}
	err := env.GetDB().Collection(testTypeCollection).FindOne(ctx, bson.M{testTypeIDKey: id}).Decode(t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding test type by id '%s'", id)
	}
	t.populated = true

	return t, nil
}

// FindOrCreateTestType resolves a test type name to its row, creating the
// row on first use. Concurrent creation of the same name converges on one
// row via the unique name index.
func FindOrCreateTestType(ctx context.Context, env benchkeep.Environment, name string) (*TestType, error) {
	if env == nil {
		return nil, errors.New("cannot resolve with a nil environment")
	}
	if name == "" {
		return nil, errors.New("cannot resolve an empty test type name")
	}

	t := &TestType{Name: name, env: env}
	err := t.Find(ctx)
	if err == nil {
		return t, nil
	}
	if !errors.Is(errors.Cause(err), mongo.ErrNoDocuments) {
		return nil, errors.WithStack(err)
	}

	t.ID = uuid.New().String()
	t.Description = fmt.Sprintf("Test type for %s benchmarks", name)

	_, err = env.GetDB().Collection(testTypeCollection).InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		// another import created the row first; use theirs
		if err = t.Find(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return t, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "saving new test type '%s'", name)
	}

	grip.Debug(message.Fields{
		"collection": testTypeCollection,
		"id":         t.ID,
		"name":       name,
		"op":         "create test type",
	})

	t.populated = true
	return t, nil
}
