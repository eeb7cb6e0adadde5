package simplepost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Record kinds sharing the record store
const (
	RecordTypePost       = "Post"
	RecordTypeSite       = "Site"
	RecordTypeCollection = "Collection"
)

// ContentTypeMarkdown is the only content type a Post carries
const ContentTypeMarkdown = "text/markdown"

// Field names, in the order Fields() reports them
const (
	FieldID              = "id"
	FieldRecordType      = "recordType"
	FieldCreateTimestamp = "createTimestamp"
	FieldSites           = "sites"
	FieldCollections     = "collections"
	FieldPublished       = "published"
	FieldAuthor          = "author"
	FieldTitle           = "title"
	FieldSlug            = "slug"
	FieldContentType     = "contentType"
	FieldContent         = "content"
)

var fieldOrder = []string{
	FieldID,
	FieldRecordType,
	FieldCreateTimestamp,
	FieldSites,
	FieldCollections,
	FieldPublished,
	FieldAuthor,
	FieldTitle,
	FieldSlug,
	FieldContentType,
	FieldContent,
}

func fieldRank(name string) int {
	for i, n := range fieldOrder {
		if n == name {
			return i
		}
	}
	return len(fieldOrder)
}

// Field is a single name/value pair of a record
type Field struct {
	Name  string
	Value interface{}
}

// FieldSet is the ordered field set exchanged with a RecordStore
type FieldSet []Field

// MarkerFields returns the field set of a site or collection marker record
func MarkerFields(recordType, ref string) FieldSet {
	return FieldSet{
		{Name: FieldID, Value: ref},
		{Name: FieldRecordType, Value: recordType},
	}
}

// Get returns the value of the named field
func (fs FieldSet) Get(name string) (interface{}, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Map returns the field set as a plain map
func (fs FieldSet) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(fs))
	for _, f := range fs {
		m[f.Name] = f.Value
	}
	return m
}

// Names returns the field names in order
func (fs FieldSet) Names() []string {
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		names = append(names, f.Name)
	}
	return names
}

// Key returns the string form of the "id" field used to key records in a store
func (fs FieldSet) Key() (string, error) {
	v, ok := fs.Get(FieldID)
	if !ok {
		return "", fmt.Errorf("%w: field set has no %s", ErrInvalidArgument, FieldID)
	}
	switch id := v.(type) {
	case uuid.UUID:
		return id.String(), nil
	case string:
		if id == "" {
			return "", fmt.Errorf("%w: empty %s", ErrInvalidArgument, FieldID)
		}
		return id, nil
	default:
		return "", fieldError(FieldID, ErrInvalidType)
	}
}

// RecordType returns the "recordType" field, or "" when absent
func (fs FieldSet) RecordType() string {
	v, _ := fs.Get(FieldRecordType)
	s, _ := v.(string)
	return s
}

// MarshalJSON encodes the field set as an object, keeping field order
func (fs FieldSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", f.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object and restores field types by name
func (fs *FieldSet) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := NormalizeFieldSet(raw)
	if err != nil {
		return err
	}
	*fs = decoded
	return nil
}

// NormalizeFieldSet builds a FieldSet from loosely typed values, as produced by JSON or
// attribute-value decoding, converting known fields to their Go types.
func NormalizeFieldSet(raw map[string]interface{}) (FieldSet, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := fieldRank(names[i]), fieldRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	fs := make(FieldSet, 0, len(names))
	for _, name := range names {
		value, err := normalizeValue(name, raw[name])
		if err != nil {
			return nil, err
		}
		fs = append(fs, Field{Name: name, Value: value})
	}
	return fs, nil
}

func normalizeValue(name string, v interface{}) (interface{}, error) {
	switch name {
	case FieldID:
		switch id := v.(type) {
		case uuid.UUID:
			return id, nil
		case string:
			// site and collection markers use free-form ids
			if parsed, err := uuid.Parse(id); err == nil {
				return parsed, nil
			}
			return id, nil
		}
	case FieldCreateTimestamp:
		switch ts := v.(type) {
		case time.Time:
			return ts.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, fieldError(name, fmt.Errorf("%w: %v", ErrInvalidType, err))
			}
			return parsed.UTC(), nil
		}
	case FieldSites, FieldCollections:
		switch refs := v.(type) {
		case []string:
			return refs, nil
		case []interface{}:
			out := make([]string, 0, len(refs))
			for _, ref := range refs {
				s, ok := ref.(string)
				if !ok {
					return nil, fieldError(name, ErrInvalidType)
				}
				out = append(out, s)
			}
			return out, nil
		}
	case FieldPublished:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case FieldContent:
		switch ptr := v.(type) {
		case Pointer:
			return ptr, nil
		case string:
			return Pointer(ptr), nil
		}
	case FieldRecordType, FieldAuthor, FieldTitle, FieldSlug, FieldContentType:
		if s, ok := v.(string); ok {
			return s, nil
		}
	default:
		return v, nil
	}
	return nil, fieldError(name, ErrInvalidType)
}
