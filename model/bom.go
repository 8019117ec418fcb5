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

const (
	hardwareBOMCollection = "hw_boms"
	softwareBOMCollection = "sw_boms"
)

// BOM is a hardware or software bill of materials dimension row. Identity is
// content-addressed: SpecsHash is the sha256 of the canonical serialization
// of Specs and carries a unique index, so two imports of the same logical
// document resolve to one row no matter how the maps were ordered.
type BOM struct {
	ID        string      `bson:"_id"`
	Specs     interface{} `bson:"specs"`
	SpecsHash string      `bson:"specs_hash"`

	collection string
	env        benchkeep.Environment
	populated  bool
}

var (
	bomIDKey        = bsonutil.MustHaveTag(BOM{}, "ID")
	bomSpecsKey     = bsonutil.MustHaveTag(BOM{}, "Specs")
	bomSpecsHashKey = bsonutil.MustHaveTag(BOM{}, "SpecsHash")
)

// Setup sets the environment. The environment is required for all storage
// operations on BOM.
func (b *BOM) Setup(e benchkeep.Environment) { b.env = e }

// IsNil returns if the BOM is populated or not.
func (b *BOM) IsNil() bool { return !b.populated }

// Find searches the database for the BOM by its specs hash. The environment
// should not be nil.
func (b *BOM) Find(ctx context.Context) error {
	if b.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	if b.collection == "" {
		return errors.New("cannot find a BOM without a collection")
	}

	b.populated = false
	err := b.env.GetDB().Collection(b.collection).FindOne(ctx, bson.M{bomSpecsHashKey: b.SpecsHash}).Decode(b)
	if err != nil {
		return errors.Wrapf(err, "finding BOM with hash '%s'", b.SpecsHash)
	}
	b.populated = true

	return nil
}

// ResolveHardwareBOM resolves a hardware specs document to its dimension
// row, creating the row when the content is new.
func ResolveHardwareBOM(ctx context.Context, env benchkeep.Environment, specs interface{}) (*BOM, error) {
	return resolveBOM(ctx, env, hardwareBOMCollection, specs)
}

// ResolveSoftwareBOM resolves a software specs document to its dimension
// row, creating the row when the content is new.
func ResolveSoftwareBOM(ctx context.Context, env benchkeep.Environment, specs interface{}) (*BOM, error) {
	return resolveBOM(ctx, env, softwareBOMCollection, specs)
}

func resolveBOM(ctx context.Context, env benchkeep.Environment, collection string, specs interface{}) (*BOM, error) {
	if env == nil {
		return nil, errors.New("cannot resolve with a nil environment")
	}

	digest, err := SpecsHash(specs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	b := &BOM{SpecsHash: digest, collection: collection, env: env}
	err = b.Find(ctx)
	if err == nil {
		return b, nil
	}
	if !errors.Is(errors.Cause(err), mongo.ErrNoDocuments) {
		return nil, errors.WithStack(err)
	}

	b.ID = uuid.New().String()
	b.Specs = specs

	_, err = env.GetDB().Collection(collection).InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent import inserted the identical content between
		// our read and write; the unique hash index makes the insert
		// lose, so take the winner's row
		if err = b.Find(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return b, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "saving new BOM with hash '%s'", digest)
	}

	grip.Debug(message.Fields{
		"collection": collection,
		"id":         b.ID,
		"specs_hash": digest,
		"op":         "create BOM",
	})

	b.populated = true
	return b, nil
}
