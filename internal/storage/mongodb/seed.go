package mongodb

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

// The API never writes. The helpers below exist for the seed tool.

// legacyQuantityField is the lot quantity name used before QuantityField.
const legacyQuantityField = "quantityOnHand"

// InsertMany inserts docs into collection name in order.
func (s *Store) InsertMany(ctx context.Context, name string, docs []bson.D) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	batch := make([]any, len(docs))
	for i, d := range docs {
		batch[i] = d
	}
	res, err := s.db.Collection(name).InsertMany(ctx, batch)
	if err != nil {
		return 0, errors.Wrapf(err, "insert into %s", name)
	}
	return len(res.InsertedIDs), nil
}

// Drop removes collection name. Dropping a missing collection is not an error.
func (s *Store) Drop(ctx context.Context, name string) error {
	if err := s.db.Collection(name).Drop(ctx); err != nil {
		return errors.Wrapf(err, "drop %s", name)
	}
	return nil
}

// EnsureIndexes creates the indexes backing the attachment listing filters.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(inventory.AttachmentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "entityType", Value: 1},
			{Key: "entityId", Value: 1},
			{Key: "isDeleted", Value: 1},
		},
		Options: options.Index().SetName("entity_lookup"),
	})
	if err != nil {
		return errors.Wrap(err, "create attachments index")
	}
	return nil
}

// MigrateQuantityField renames the legacy lot quantity field to
// inventory.QuantityField on lots that do not have the canonical field yet.
// It returns the number of migrated lots.
func (s *Store) MigrateQuantityField(ctx context.Context) (int64, error) {
	filter := bson.D{
		{Key: inventory.QuantityField, Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: legacyQuantityField, Value: bson.D{{Key: "$exists", Value: true}}},
	}
	update := bson.D{{Key: "$rename", Value: bson.D{{Key: legacyQuantityField, Value: inventory.QuantityField}}}}

	res, err := s.db.Collection(inventory.LotsCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, errors.Wrap(err, "rename quantity field")
	}
	return res.ModifiedCount, nil
}
