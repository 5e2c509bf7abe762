package inventory

import "go.mongodb.org/mongo-driver/bson"

// Product is a catalog entry. ID is kept in its raw stored shape; normalize it
// with ident.Normalize before comparing.
type Product struct {
	ID       any
	Name     string
	Category string
	Barcode  string
}

// DecodeProduct maps a product document onto Product.
func DecodeProduct(doc bson.D) Product {
	return Product{
		ID:       identity(doc),
		Name:     lookupString(doc, "name"),
		Category: lookupString(doc, "category"),
		Barcode:  lookupString(doc, "barcodeUpc"),
	}
}

// DecodeProducts maps every document in docs, preserving order.
func DecodeProducts(docs []bson.D) []Product {
	out := make([]Product, len(docs))
	for i, d := range docs {
		out[i] = DecodeProduct(d)
	}
	return out
}
