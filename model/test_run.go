package model

import (
	"context"
	"time"

	"github.com/benchkeep/benchkeep"
	"github.com/google/uuid"
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testRunCollection = "test_runs"

// TestRun is the fact row for one benchmark execution. Dimension links are
// optional; a run may carry no environment or BOM. Rows are append-only and
// are never mutated after creation.
type TestRun struct {
	ID            string                 `bson:"_id"`
	TestTypeID    string                 `bson:"test_type_id"`
	EnvironmentID string                 `bson:"environment_id,omitempty"`
	HardwareBOMID string                 `bson:"hw_bom_id,omitempty"`
	SoftwareBOMID string                 `bson:"sw_bom_id,omitempty"`
	CreatedAt     time.Time              `bson:"created_at"`
	Engineer      string                 `bson:"engineer,omitempty"`
	Comments      string                 `bson:"comments,omitempty"`
	Configuration map[string]interface{} `bson:"configuration,omitempty"`

	env       benchkeep.Environment
	populated bool
}

var (
	testRunIDKey            = bsonutil.MustHaveTag(TestRun{}, "ID")
	testRunTestTypeIDKey    = bsonutil.MustHaveTag(TestRun{}, "TestTypeID")
	testRunEnvironmentIDKey = bsonutil.MustHaveTag(TestRun{}, "EnvironmentID")
	testRunHardwareBOMIDKey = bsonutil.MustHaveTag(TestRun{}, "HardwareBOMID")
	testRunSoftwareBOMIDKey = bsonutil.MustHaveTag(TestRun{}, "SoftwareBOMID")
	testRunCreatedAtKey     = bsonutil.MustHaveTag(TestRun{}, "CreatedAt")
	testRunEngineerKey      = bsonutil.MustHaveTag(TestRun{}, "Engineer")
	testRunCommentsKey      = bsonutil.MustHaveTag(TestRun{}, "Comments")
	testRunConfigurationKey = bsonutil.MustHaveTag(TestRun{}, "Configuration")
)

// CreateTestRun is the entry point for creating a test run fact.
func CreateTestRun(testTypeID string) *TestRun {
	return &TestRun{
		ID:         uuid.New().String(),
		TestTypeID: testTypeID,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
		populated:  true,
	}
}

// Setup sets the environment. The environment is required for all storage
// operations on TestRun.
func (r *TestRun) Setup(e benchkeep.Environment) { r.env = e }

// IsNil returns if the test run is populated or not.
func (r *TestRun) IsNil() bool { return !r.populated }

// Find searches the database for the test run by ID. The environment should
// not be nil.
func (r *TestRun) Find(ctx context.Context) error {
	if r.env == nil {
		return errors.New("cannot find with a nil environment")
	}

	r.populated = false
	err := r.env.GetDB().Collection(testRunCollection).FindOne(ctx, bson.M{"_id": r.ID}).Decode(r)
	if err != nil {
		return errors.Wrapf(err, "finding test run '%s'", r.ID)
	}
	r.populated = true

	return nil
}

// SaveNew writes the test run to the database. The caller's context may be a
// session context, in which case the insert participates in that
// transaction. The test run should be populated and the environment should
// not be nil.
func (r *TestRun) SaveNew(ctx context.Context) error {
	if !r.populated {
		return errors.New("cannot save unpopulated test run")
	}
	if r.env == nil {
		return errors.New("cannot save with a nil environment")
	}

	insertResult, err := r.env.GetDB().Collection(testRunCollection).InsertOne(ctx, r)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   testRunCollection,
		"id":           r.ID,
		"insertResult": insertResult,
		"op":           "save new test run",
	})

	return errors.Wrapf(err, "saving new test run '%s'", r.ID)
}

// Remove deletes the test run and, cascading, its results row from each of
// the given results collections, inside one transaction. Dimension rows are
// never touched. Returns the number of documents removed.
func (r *TestRun) Remove(ctx context.Context, resultsCollections []string) (int, error) {
	if r.env == nil {
		return -1, errors.New("cannot remove with a nil environment")
	}

	session, err := r.env.GetClient().StartSession()
	if err != nil {
		return -1, errors.Wrap(err, "starting session")
	}
	defer session.EndSession(ctx)

	removed, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		count := 0

		deleteResult, err := r.env.GetDB().Collection(testRunCollection).DeleteOne(sc, bson.M{"_id": r.ID})
		if err != nil {
			return nil, errors.Wrapf(err, "removing test run '%s'", r.ID)
		}
		count += int(deleteResult.DeletedCount)

		for _, coll := range resultsCollections {
			deleteResult, err = r.env.GetDB().Collection(coll).DeleteOne(sc, bson.M{"_id": r.ID})
			if err != nil {
				return nil, errors.Wrapf(err, "removing results for test run '%s' from '%s'", r.ID, coll)
			}
			count += int(deleteResult.DeletedCount)
		}

		return count, nil
	})
	if err != nil {
		return -1, errors.WithStack(err)
	}

	grip.Debug(message.Fields{
		"collection": testRunCollection,
		"id":         r.ID,
		"removed":    removed,
		"op":         "remove test run",
	})

	return removed.(int), nil
}

// TestRunFilter bounds ListTestRuns.
type TestRunFilter struct {
	TestTypeID    string
	EnvironmentID string
	Engineer      string
	Limit         int64
	Offset        int64
}

// ListTestRuns returns test runs matching the filter, newest first.
func ListTestRuns(ctx context.Context, env benchkeep.Environment, filter TestRunFilter) ([]TestRun, error) {
	if env == nil {
		return nil, errors.New("cannot list with a nil environment")
	}

	query := bson.M{}
	if filter.TestTypeID != "" {
		query[testRunTestTypeIDKey] = filter.TestTypeID
	}
	if filter.EnvironmentID != "" {
		query[testRunEnvironmentIDKey] = filter.EnvironmentID
	}
	if filter.Engineer != "" {
		query[testRunEngineerKey] = filter.Engineer
	}

	opts := options.Find().SetSort(bson.D{{Key: testRunCreatedAtKey, Value: -1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts = opts.SetSkip(filter.Offset)
	}

	cursor, err := env.GetDB().Collection(testRunCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding test runs")
	}

	runs := []TestRun{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, errors.Wrap(err, "decoding test runs")
	}

	return runs, nil
}
