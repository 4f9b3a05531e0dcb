package collection

import (
	"encoding/json"

	"github.com/apicomponents/blob-collection/docid"
	"github.com/apicomponents/blob-collection/errors"
)

// Field names reserved on every document.
const (
	// FieldID holds the 24-hex document identifier.
	FieldID = "_id"
	// FieldETag holds the store-assigned version token. It is never written
	// into the raw object body.
	FieldETag = "_etag"
)

// Document is an opaque key/value record. The identifier under FieldID
// determines the document's partition permanently; the etag under FieldETag
// is present only on documents that have been persisted or fetched.
type Document map[string]any

// ID returns the document identifier, or "" when unset or not a string.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// ETag returns the document's version token, or "" when the document has
// never been persisted.
func (d Document) ETag() string {
	etag, _ := d[FieldETag].(string)
	return etag
}

// EnsureID makes sure the document carries a well-formed identifier and
// returns it. A caller-supplied id survives only if it is already a valid
// 24-hex string; anything else is replaced with a fresh one.
func (d Document) EnsureID() string {
	if id := d.ID(); docid.Valid(id) {
		return id
	}
	id := docid.New()
	d[FieldID] = id
	return id
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// marshalBody serializes the document for storage. The etag is the store's
// to assign, so it never goes into the body.
func (d Document) marshalBody() ([]byte, error) {
	body := d
	if _, ok := d[FieldETag]; ok {
		body = d.Clone()
		delete(body, FieldETag)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Document", "marshalBody", "serialize document")
	}
	return data, nil
}
