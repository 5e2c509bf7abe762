package inventory

import "go.mongodb.org/mongo-driver/bson"

// Attachment links a file (usually an image) to another entity. EntityType
// names the collection EntityID points into.
type Attachment struct {
	ID         any
	EntityType string
	EntityID   any
	URL        string
	IsDeleted  bool
}

// DecodeAttachment maps an attachment document onto Attachment. Only a
// boolean true marks the attachment deleted.
func DecodeAttachment(doc bson.D) Attachment {
	entityID, _ := Lookup(doc, "entityId")
	deleted, _ := Lookup(doc, "isDeleted")
	isDeleted, _ := deleted.(bool)

	return Attachment{
		ID:         identity(doc),
		EntityType: lookupString(doc, "entityType"),
		EntityID:   entityID,
		URL:        lookupString(doc, "url"),
		IsDeleted:  isDeleted,
	}
}

// DecodeAttachments maps every document in docs, preserving order.
func DecodeAttachments(docs []bson.D) []Attachment {
	out := make([]Attachment, len(docs))
	for i, d := range docs {
		out[i] = DecodeAttachment(d)
	}
	return out
}
