package simplepost_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-post/pkg/simplepost"
)

func TestFieldSetJSON(t *testing.T) {
	id := uuid.MustParse("12345678-1234-1234-1234-123456789abc")
	fields := simplepost.FieldSet{
		{Name: simplepost.FieldID, Value: id},
		{Name: simplepost.FieldRecordType, Value: simplepost.RecordTypePost},
		{Name: simplepost.FieldCreateTimestamp, Value: fixedTime},
		{Name: simplepost.FieldSites, Value: []string{"site-1"}},
		{Name: simplepost.FieldPublished, Value: false},
		{Name: simplepost.FieldTitle, Value: "Hello"},
		{Name: simplepost.FieldContent, Value: simplepost.Pointer("posts/objects/12/abc.md")},
	}

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"12345678-1234-1234-1234-123456789abc","recordType":"Post",`+
		`"createTimestamp":"2024-05-01T12:30:00.123456789Z","sites":["site-1"],"published":false,`+
		`"title":"Hello","content":"posts/objects/12/abc.md"}`, string(data))

	var decoded simplepost.FieldSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, fields, decoded)
}

func TestNormalizeFieldSet(t *testing.T) {
	t.Run("marker ids stay strings", func(t *testing.T) {
		fields, err := simplepost.NormalizeFieldSet(map[string]interface{}{
			"recordType": "Site",
			"id":         "site-1",
		})
		require.NoError(t, err)
		assert.Equal(t, simplepost.MarkerFields(simplepost.RecordTypeSite, "site-1"), fields)
	})

	t.Run("unknown fields kept after known ones", func(t *testing.T) {
		fields, err := simplepost.NormalizeFieldSet(map[string]interface{}{
			"zeta":   1.0,
			"alpha":  "a",
			"author": "ada",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "alpha", "zeta"}, fields.Names())
		v, ok := fields.Get("zeta")
		assert.True(t, ok)
		assert.Equal(t, 1.0, v)
	})

	t.Run("wrong types", func(t *testing.T) {
		for name, value := range map[string]interface{}{
			"createTimestamp": "yesterday",
			"sites":           []interface{}{"a", 1.0},
			"published":       "yes",
			"title":           12.0,
			"content":         true,
		} {
			_, err := simplepost.NormalizeFieldSet(map[string]interface{}{name: value})
			assert.ErrorIs(t, err, simplepost.ErrInvalidType, name)
		}
	})
}

func TestFieldSetKey(t *testing.T) {
	id := uuid.New()

	key, err := simplepost.FieldSet{{Name: "id", Value: id}}.Key()
	require.NoError(t, err)
	assert.Equal(t, id.String(), key)

	key, err = simplepost.MarkerFields(simplepost.RecordTypeCollection, "col-1").Key()
	require.NoError(t, err)
	assert.Equal(t, "col-1", key)

	_, err = simplepost.FieldSet{{Name: "title", Value: "x"}}.Key()
	assert.ErrorIs(t, err, simplepost.ErrInvalidArgument)

	_, err = simplepost.FieldSet{{Name: "id", Value: ""}}.Key()
	assert.ErrorIs(t, err, simplepost.ErrInvalidArgument)

	_, err = simplepost.FieldSet{{Name: "id", Value: 7}}.Key()
	assert.ErrorIs(t, err, simplepost.ErrInvalidType)
}

func TestFieldSetAccessors(t *testing.T) {
	fields := simplepost.MarkerFields(simplepost.RecordTypeSite, "site-1")
	assert.Equal(t, simplepost.RecordTypeSite, fields.RecordType())
	assert.Equal(t, map[string]interface{}{"id": "site-1", "recordType": "Site"}, fields.Map())

	_, ok := fields.Get("title")
	assert.False(t, ok)
	assert.Empty(t, simplepost.FieldSet{}.RecordType())
}
