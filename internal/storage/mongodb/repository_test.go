package mongodb

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

type listCall struct {
	name   string
	filter inventory.Filter
}

type fakeStore struct {
	docs    map[string][]bson.D
	listErr error
	pingErr error
	calls   []listCall
}

func (f *fakeStore) ListCollection(_ context.Context, name string, filter inventory.Filter) ([]bson.D, error) {
	f.calls = append(f.calls, listCall{name: name, filter: filter})
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs[name], nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

func TestRepository_Passthrough(t *testing.T) {
	products := []bson.D{{{Key: "_id", Value: "p1"}, {Key: "name", Value: "Oat Milk"}}}
	lots := []bson.D{{{Key: "_id", Value: "l1"}, {Key: "productId", Value: "p1"}}}
	store := &fakeStore{docs: map[string][]bson.D{
		inventory.ProductsCollection: products,
		inventory.LotsCollection:     lots,
	}}
	repo := NewRepository(store)
	ctx := context.Background()

	gotProducts, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, products, gotProducts)

	gotLots, err := repo.InventoryLots(ctx)
	require.NoError(t, err)
	assert.Equal(t, lots, gotLots)

	require.Len(t, store.calls, 2)
	assert.Empty(t, store.calls[0].filter)
	assert.Empty(t, store.calls[1].filter)
}

func TestRepository_AttachmentsFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name  string
		query inventory.AttachmentQuery
		want  inventory.Filter
	}{
		{
			name:  "no query still excludes deleted",
			query: inventory.AttachmentQuery{},
			want:  inventory.Filter{"isDeleted": {false}},
		},
		{
			name:  "entity type",
			query: inventory.AttachmentQuery{EntityType: inventory.LotsCollection},
			want: inventory.Filter{
				"isDeleted":  {false},
				"entityType": {inventory.LotsCollection},
			},
		},
		{
			name:  "plain entity id",
			query: inventory.AttachmentQuery{EntityID: "l1"},
			want: inventory.Filter{
				"isDeleted": {false},
				"entityId":  {"l1"},
			},
		},
		{
			name:  "hex entity id matches both shapes",
			query: inventory.AttachmentQuery{EntityID: oid.Hex()},
			want: inventory.Filter{
				"isDeleted": {false},
				"entityId":  {oid.Hex(), oid},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			_, err := NewRepository(store).Attachments(context.Background(), tt.query)
			require.NoError(t, err)
			require.Len(t, store.calls, 1)
			assert.Equal(t, inventory.AttachmentsCollection, store.calls[0].name)
			assert.Equal(t, tt.want, store.calls[0].filter)
		})
	}
}

func TestRepository_Errors(t *testing.T) {
	store := &fakeStore{listErr: errors.New("no reachable servers"), pingErr: errors.New("timeout")}
	repo := NewRepository(store)

	_, err := repo.Products(context.Background())
	require.Error(t, err)
	assert.Error(t, repo.Ping(context.Background()))
}

func TestToBSON(t *testing.T) {
	oid := primitive.NewObjectID()
	f := inventory.Filter{}.
		Eq("isDeleted", false).
		Eq("entityType", inventory.LotsCollection).
		Eq("entityId", oid.Hex(), oid)

	assert.Equal(t, bson.D{
		{Key: "entityId", Value: bson.D{{Key: "$in", Value: bson.A{oid.Hex(), oid}}}},
		{Key: "entityType", Value: inventory.LotsCollection},
		{Key: "isDeleted", Value: false},
	}, toBSON(f))

	assert.Equal(t, bson.D{}, toBSON(inventory.Filter{}))
}
