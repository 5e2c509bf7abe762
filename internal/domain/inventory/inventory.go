// Package inventory defines the read-only entities of the dashboard and the
// contract of the document store that holds them.
package inventory

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names as stored in the document database.
const (
	ProductsCollection    = "products"
	LotsCollection        = "inventoryLots"
	AttachmentsCollection = "attachments"
)

// Filter is a conjunction of field conditions for ListCollection. A document
// matches a field when its value equals any of the listed values.
type Filter map[string][]any

// Eq adds an equality condition on field and returns f for chaining. Passing
// several values matches any of them.
func (f Filter) Eq(field string, values ...any) Filter {
	f[field] = append(f[field], values...)
	return f
}

// Fields returns the filtered field names in sorted order.
func (f Filter) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AttachmentQuery narrows the attachment listing. Empty fields do not filter.
type AttachmentQuery struct {
	EntityType string
	EntityID   string
}

// Store is the persistence collaborator: one unordered query per collection.
type Store interface {
	ListCollection(ctx context.Context, name string, filter Filter) ([]bson.D, error)
	Ping(ctx context.Context) error
}

// Repository exposes the three collections as raw documents. It is
// implemented both by the storage layer and by the HTTP client of the API.
type Repository interface {
	Ping(ctx context.Context) error
	Products(ctx context.Context) ([]bson.D, error)
	InventoryLots(ctx context.Context) ([]bson.D, error)
	Attachments(ctx context.Context, q AttachmentQuery) ([]bson.D, error)
}

// Lookup returns the value stored under key in doc.
func Lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// lookupString returns the string stored under key, or "" when the field is
// absent or not a string.
func lookupString(doc bson.D, key string) string {
	v, _ := Lookup(doc, key)
	s, _ := v.(string)
	return s
}

// identity returns the raw identifier of doc. The store uses "_id"; documents
// produced elsewhere may use "id".
func identity(doc bson.D) any {
	if v, ok := Lookup(doc, "_id"); ok {
		return v
	}
	v, _ := Lookup(doc, "id")
	return v
}
