package ingest

import (
	"context"
	"time"

	"github.com/benchkeep/benchkeep"
	"github.com/benchkeep/benchkeep/model"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Bootstrap prepares storage for the pipeline, creating the unique indexes
// deduplication depends on unless the configuration disables index
// creation.
func Bootstrap(ctx context.Context, env benchkeep.Environment) error {
	conf, err := env.GetConf()
	if err != nil {
		return errors.WithStack(err)
	}
	if conf.DisableIndexCreation {
		return nil
	}

	return errors.Wrap(model.EnsureIndexes(ctx, env), "ensuring indexes")
}

// DeleteTestRun removes a test run fact and, cascading, its results row
// from every collection the router knows about. Dimension rows stay in
// place since other runs may reference them. Returns the number of
// documents removed.
func DeleteTestRun(ctx context.Context, env benchkeep.Environment, router *Router, testRunID string) (int, error) {
	run := &model.TestRun{ID: testRunID}
	run.Setup(env)

	removed, err := run.Remove(ctx, router.Collections())
	if err != nil {
		return -1, errors.Wrapf(err, "deleting test run '%s'", testRunID)
	}
	if removed == 0 {
		return 0, errors.Errorf("test run '%s' not found", testRunID)
	}

	return removed, nil
}

// TestRunSummary is the human-facing digest of one test run: dimension
// names instead of IDs, plus flags for which optional pieces the run
// carries.
type TestRunSummary struct {
	TestRunID      string    `bson:"test_run_id" json:"test_run_id"`
	TestType       string    `bson:"test_type,omitempty" json:"test_type,omitempty"`
	Environment    string    `bson:"environment,omitempty" json:"environment,omitempty"`
	Engineer       string    `bson:"engineer,omitempty" json:"engineer,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	Comments       string    `bson:"comments,omitempty" json:"comments,omitempty"`
	HasHardwareBOM bool      `bson:"has_hw_bom" json:"has_hw_bom"`
	HasSoftwareBOM bool      `bson:"has_sw_bom" json:"has_sw_bom"`
	HasResults     bool      `bson:"has_results" json:"has_results"`

	// ResultType names the test type whose aggregator produced the
	// stored results row, when one exists.
	ResultType string `bson:"result_type,omitempty" json:"result_type,omitempty"`
}

// GetTestRunSummary resolves a test run's dimension links to their display
// names and reports which results collection, if any, holds its row.
func GetTestRunSummary(ctx context.Context, env benchkeep.Environment, router *Router, testRunID string) (*TestRunSummary, error) {
	run := &model.TestRun{ID: testRunID}
	run.Setup(env)
	if err := run.Find(ctx); err != nil {
		return nil, errors.Wrapf(err, "finding test run '%s'", testRunID)
	}

	summary := &TestRunSummary{
		TestRunID:      run.ID,
		Engineer:       run.Engineer,
		CreatedAt:      run.CreatedAt,
		Comments:       run.Comments,
		HasHardwareBOM: run.HardwareBOMID != "",
		HasSoftwareBOM: run.SoftwareBOMID != "",
	}

	testType, err := model.FindTestTypeByID(ctx, env, run.TestTypeID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if testType != nil {
		summary.TestType = testType.Name
	}

	if run.EnvironmentID != "" {
		dimension, err := model.FindEnvironmentByID(ctx, env, run.EnvironmentID)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if dimension != nil {
			summary.Environment = dimension.Name
		}
	}

	if summary.TestType != "" {
		if agg := router.Get(summary.TestType); agg != nil {
			if _, err := model.FindResultsRow(ctx, env, agg.Collection(), run.ID); err == nil {
				summary.HasResults = true
				summary.ResultType = summary.TestType
			} else if !errors.Is(errors.Cause(err), mongo.ErrNoDocuments) {
				return nil, errors.WithStack(err)
			}
		}
	}

	return summary, nil
}

// ListTestRuns returns test run facts matching the filter, newest first.
func ListTestRuns(ctx context.Context, env benchkeep.Environment, filter model.TestRunFilter) ([]model.TestRun, error) {
	runs, err := model.ListTestRuns(ctx, env, filter)
	return runs, errors.WithStack(err)
}

// Statistics reports row counts for the central collections.
type Statistics struct {
	TestTypes    int64 `bson:"test_types" json:"test_types"`
	Environments int64 `bson:"environments" json:"environments"`
	HardwareBOMs int64 `bson:"hw_boms" json:"hw_boms"`
	SoftwareBOMs int64 `bson:"sw_boms" json:"sw_boms"`
	TestRuns     int64 `bson:"test_runs" json:"test_runs"`

	// Results maps each results collection the router registers to its
	// row count.
	Results map[string]int64 `bson:"results" json:"results"`
}

// GetStatistics counts rows in every central collection plus each results
// collection the router registers.
func GetStatistics(ctx context.Context, env benchkeep.Environment, router *Router) (*Statistics, error) {
	if env == nil {
		return nil, errors.New("cannot collect statistics with a nil environment")
	}

	stats := &Statistics{Results: map[string]int64{}}

	count := func(collection string) (int64, error) {
		n, err := env.GetDB().Collection(collection).CountDocuments(ctx, bson.M{})
		return n, errors.Wrapf(err, "counting '%s'", collection)
	}

	var err error
	if stats.TestTypes, err = count("test_types"); err != nil {
		return nil, err
	}
	if stats.Environments, err = count("environments"); err != nil {
		return nil, err
	}
	if stats.HardwareBOMs, err = count("hw_boms"); err != nil {
		return nil, err
	}
	if stats.SoftwareBOMs, err = count("sw_boms"); err != nil {
		return nil, err
	}
	if stats.TestRuns, err = count("test_runs"); err != nil {
		return nil, err
	}

	for _, collection := range router.Collections() {
		if stats.Results[collection], err = count(collection); err != nil {
			return nil, err
		}
	}

	return stats, nil
}
