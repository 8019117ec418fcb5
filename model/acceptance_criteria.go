package model

import (
	"context"

	"github.com/benchkeep/benchkeep"
	"github.com/google/uuid"
	"github.com/mongodb/anser/bsonutil"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

const acceptanceCriteriaCollection = "acceptance_criteria"

// AcceptanceCriterion is a reporting-side threshold on one metric of a test
// type's results row. Criteria are consumed by downstream reporting, not by
// the ingestion write path.
type AcceptanceCriterion struct {
	ID              string   `bson:"_id"`
	TestTypeID      string   `bson:"test_type_id"`
	Metric          string   `bson:"metric"`
	Operator        string   `bson:"operator"`
	ThresholdMin    *float64 `bson:"threshold_min,omitempty"`
	ThresholdMax    *float64 `bson:"threshold_max,omitempty"`
	TargetComponent string   `bson:"target_component,omitempty"`
}

var (
	criterionIDKey         = bsonutil.MustHaveTag(AcceptanceCriterion{}, "ID")
	criterionTestTypeIDKey = bsonutil.MustHaveTag(AcceptanceCriterion{}, "TestTypeID")
	criterionMetricKey     = bsonutil.MustHaveTag(AcceptanceCriterion{}, "Metric")
	criterionOperatorKey   = bsonutil.MustHaveTag(AcceptanceCriterion{}, "Operator")
)

// SaveAcceptanceCriterion stores a criterion, assigning an ID when unset.
func SaveAcceptanceCriterion(ctx context.Context, env benchkeep.Environment, c *AcceptanceCriterion) error {
	if env == nil {
		return errors.New("cannot save with a nil environment")
	}
	if c.TestTypeID == "" || c.Metric == "" || c.Operator == "" {
		return errors.New("criterion requires a test type, metric, and operator")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := env.GetDB().Collection(acceptanceCriteriaCollection).InsertOne(ctx, c)
	return errors.Wrapf(err, "saving acceptance criterion for metric '%s'", c.Metric)
}

// FindAcceptanceCriteria returns the criteria registered for a test type.
func FindAcceptanceCriteria(ctx context.Context, env benchkeep.Environment, testTypeID string) ([]AcceptanceCriterion, error) {
	if env == nil {
		return nil, errors.New("cannot find with a nil environment")
	}

	cursor, err := env.GetDB().Collection(acceptanceCriteriaCollection).Find(ctx, bson.M{criterionTestTypeIDKey: testTypeID})
	if err != nil {
		return nil, errors.Wrapf(err, "finding criteria for test type '%s'", testTypeID)
	}

	criteria := []AcceptanceCriterion{}
	if err := cursor.All(ctx, &criteria); err != nil {
		return nil, errors.Wrap(err, "decoding criteria")
	}

	return criteria, nil
}

// CriterionResult reports one criterion evaluated against a results row.
type CriterionResult struct {
	Metric          string
	Operator        string
	Passed          bool
	Actual          *float64
	TargetComponent string
}

// EvaluateCriteria checks every criterion for a test type against a results
// row. Metrics absent from the row evaluate as failed, with a nil actual
// value.
func EvaluateCriteria(criteria []AcceptanceCriterion, row map[string]interface{}) ([]CriterionResult, error) {
	out := make([]CriterionResult, 0, len(criteria))

	for _, c := range criteria {
		res := CriterionResult{
			Metric:          c.Metric,
			Operator:        c.Operator,
			TargetComponent: c.TargetComponent,
		}

		raw, ok := row[c.Metric]
		if ok {
			actual, numeric := asFloat(raw)
			if !numeric {
				return nil, errors.Errorf("metric '%s' is not numeric", c.Metric)
			}
			res.Actual = &actual
			passed, err := c.evaluate(actual)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			res.Passed = passed
		}

		out = append(out, res)
	}

	return out, nil
}

func (c *AcceptanceCriterion) evaluate(actual float64) (bool, error) {
	switch c.Operator {
	case ">":
		return c.ThresholdMin != nil && actual > *c.ThresholdMin, nil
	case ">=":
		return c.ThresholdMin != nil && actual >= *c.ThresholdMin, nil
	case "<":
		return c.ThresholdMax != nil && actual < *c.ThresholdMax, nil
	case "<=":
		return c.ThresholdMax != nil && actual <= *c.ThresholdMax, nil
	case "=":
		return c.ThresholdMin != nil && actual == *c.ThresholdMin, nil
	case "!=":
		return c.ThresholdMin != nil && actual != *c.ThresholdMin, nil
	case "between":
		return c.ThresholdMin != nil && c.ThresholdMax != nil &&
			actual >= *c.ThresholdMin && actual <= *c.ThresholdMax, nil
	default:
		return false, errors.Errorf("invalid operator '%s'", c.Operator)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
