// Package resolve joins attachments to inventory lots and, through the lots,
// to products.
//
// Both stages are first-write-wins: when several candidates compete for the
// same key, the one appearing first in input order is kept. The functions are
// pure; every call builds fresh maps from its inputs.
package resolve

import (
	"github.com/xenking/shelfsafe/internal/domain/inventory"
	"github.com/xenking/shelfsafe/internal/ident"
)

// ImageIndex maps a normalized entity identifier to an image URL.
type ImageIndex map[string]string

// Lookup normalizes raw and returns the image URL stored for it.
func (ix ImageIndex) Lookup(raw any) (string, bool) {
	key, ok := ident.Normalize(raw)
	if !ok {
		return "", false
	}
	url, ok := ix[key]
	return url, ok
}

// setIfAbsent inserts url under key unless key is already present.
func (ix ImageIndex) setIfAbsent(key, url string) {
	if _, ok := ix[key]; !ok {
		ix[key] = url
	}
}

// LotImages builds the attachment -> lot index: one URL per referenced
// entity, taken from the first usable attachment. Deleted attachments,
// attachments without an entity identity and attachments with an empty URL
// are skipped. Entity types are not inspected; entries whose key matches no
// lot simply go unused by ProductImages.
func LotImages(attachments []inventory.Attachment) ImageIndex {
	ix := make(ImageIndex)
	for _, a := range attachments {
		if a.IsDeleted || a.URL == "" {
			continue
		}
		lotID, ok := ident.Normalize(a.EntityID)
		if !ok {
			continue
		}
		ix.setIfAbsent(lotID, a.URL)
	}
	return ix
}

// ProductImages resolves the lot -> product hop. A product inherits the image
// of the first lot, in input order, that has one.
func ProductImages(lotImages ImageIndex, lots []inventory.Lot) ImageIndex {
	ix := make(ImageIndex)
	for _, l := range lots {
		lotID, ok := ident.Normalize(l.ID)
		if !ok {
			continue
		}
		productID, ok := ident.Normalize(l.ProductID)
		if !ok {
			continue
		}
		url, ok := lotImages[lotID]
		if !ok {
			continue
		}
		ix.setIfAbsent(productID, url)
	}
	return ix
}

// Result holds both lookup structures of one resolution.
type Result struct {
	LotImages     ImageIndex
	ProductImages ImageIndex
}

// Resolve runs both join stages.
func Resolve(lots []inventory.Lot, attachments []inventory.Attachment) Result {
	lotImages := LotImages(attachments)
	return Result{
		LotImages:     lotImages,
		ProductImages: ProductImages(lotImages, lots),
	}
}
