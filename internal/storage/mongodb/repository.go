package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

var _ inventory.Repository = (*Repository)(nil)

// Repository lists the dashboard collections through a Store. Documents are
// returned exactly as stored.
type Repository struct {
	store inventory.Store
}

// NewRepository returns a Repository reading from store.
func NewRepository(store inventory.Store) *Repository {
	return &Repository{store: store}
}

// Ping checks the underlying store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Products returns every product document.
func (r *Repository) Products(ctx context.Context) ([]bson.D, error) {
	return r.store.ListCollection(ctx, inventory.ProductsCollection, inventory.Filter{})
}

// InventoryLots returns every lot document.
func (r *Repository) InventoryLots(ctx context.Context) ([]bson.D, error) {
	return r.store.ListCollection(ctx, inventory.LotsCollection, inventory.Filter{})
}

// Attachments returns live attachments matching q. Soft-deleted attachments
// are always excluded.
func (r *Repository) Attachments(ctx context.Context, q inventory.AttachmentQuery) ([]bson.D, error) {
	return r.store.ListCollection(ctx, inventory.AttachmentsCollection, attachmentFilter(q))
}

// attachmentFilter builds the attachment query. Entity ids are stored either
// as strings or as ObjectIDs, so a hex id matches both forms.
func attachmentFilter(q inventory.AttachmentQuery) inventory.Filter {
	f := inventory.Filter{}.Eq("isDeleted", false)
	if q.EntityType != "" {
		f.Eq("entityType", q.EntityType)
	}
	if q.EntityID != "" {
		f.Eq("entityId", q.EntityID)
		if oid, err := primitive.ObjectIDFromHex(q.EntityID); err == nil {
			f.Eq("entityId", oid)
		}
	}
	return f
}
