package collection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apicomponents/blob-collection/docid"
)

func TestDocumentAccessors(t *testing.T) {
	doc := Document{"_id": "65f3b2a1aabbccddeeff0011", "_etag": "abc", "name": "x"}
	assert.Equal(t, "65f3b2a1aabbccddeeff0011", doc.ID())
	assert.Equal(t, "abc", doc.ETag())

	empty := Document{}
	assert.Equal(t, "", empty.ID())
	assert.Equal(t, "", empty.ETag())

	// Non-string values read as unset.
	weird := Document{"_id": 42, "_etag": true}
	assert.Equal(t, "", weird.ID())
	assert.Equal(t, "", weird.ETag())
}

func TestEnsureIDPreservesWellFormed(t *testing.T) {
	id := docid.New()
	doc := Document{"_id": id}
	assert.Equal(t, id, doc.EnsureID())
	assert.Equal(t, id, doc.ID())
}

func TestEnsureIDReplacesMalformed(t *testing.T) {
	for _, bad := range []any{nil, "", "short", 42, "65F3B2A1AABBCCDDEEFF0011"} {
		doc := Document{"_id": bad}
		id := doc.EnsureID()
		assert.True(t, docid.Valid(id), "generated id should be valid for input %v", bad)
		assert.Equal(t, id, doc.ID())
	}
}

func TestEnsureIDGeneratesFreshIDs(t *testing.T) {
	a := Document{}.EnsureID()
	b := Document{}.EnsureID()
	assert.NotEqual(t, a, b)
}

func TestMarshalBodyExcludesETag(t *testing.T) {
	doc := Document{"_id": "65f3b2a1aabbccddeeff0011", "_etag": "abc", "n": 1.5}

	body, err := doc.marshalBody()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotContains(t, decoded, "_etag")
	assert.Equal(t, "65f3b2a1aabbccddeeff0011", decoded["_id"])
	assert.Equal(t, 1.5, decoded["n"])

	// The original document still carries its etag.
	assert.Equal(t, "abc", doc.ETag())
}

func TestClone(t *testing.T) {
	doc := Document{"a": 1}
	clone := doc.Clone()
	clone["a"] = 2
	assert.Equal(t, 1, doc["a"])
}
