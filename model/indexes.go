package model

import (
	"context"

	"github.com/benchkeep/benchkeep"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SystemIndexes holds the keys, options, and the collection for an index.
type SystemIndexes struct {
	Keys       bson.D
	Options    *options.IndexOptions
	Collection string
}

// GetRequiredIndexes returns the indexes the pipeline depends on. The unique
// indexes are load-bearing: dedup's insert-or-fetch relies on the name and
// specs_hash uniqueness constraints to converge concurrent imports.
func GetRequiredIndexes() []SystemIndexes {
	return []SystemIndexes{
		{
			Keys:       bson.D{{Key: testTypeNameKey, Value: 1}},
			Options:    options.Index().SetUnique(true),
			Collection: testTypeCollection,
		},
		{
			Keys:       bson.D{{Key: envNameKey, Value: 1}},
			Options:    options.Index().SetUnique(true),
			Collection: environmentCollection,
		},
		{
			Keys:       bson.D{{Key: bomSpecsHashKey, Value: 1}},
			Options:    options.Index().SetUnique(true),
			Collection: hardwareBOMCollection,
		},
		{
			Keys:       bson.D{{Key: bomSpecsHashKey, Value: 1}},
			Options:    options.Index().SetUnique(true),
			Collection: softwareBOMCollection,
		},
		{
			Keys:       bson.D{{Key: testRunCreatedAtKey, Value: 1}},
			Collection: testRunCollection,
		},
		{
			Keys:       bson.D{{Key: testRunTestTypeIDKey, Value: 1}},
			Collection: testRunCollection,
		},
		{
			Keys:       bson.D{{Key: criterionTestTypeIDKey, Value: 1}},
			Collection: acceptanceCriteriaCollection,
		},
	}
}

// EnsureIndexes creates the required indexes. Safe to call repeatedly.
func EnsureIndexes(ctx context.Context, env benchkeep.Environment) error {
	if env == nil {
		return errors.New("cannot ensure indexes with a nil environment")
	}

	for _, idx := range GetRequiredIndexes() {
		indexModel := mongo.IndexModel{Keys: idx.Keys, Options: idx.Options}
		if _, err := env.GetDB().Collection(idx.Collection).Indexes().CreateOne(ctx, indexModel); err != nil {
			return errors.Wrapf(err, "creating index on '%s'", idx.Collection)
		}
	}

	return nil
}
