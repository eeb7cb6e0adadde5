package simplepost

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"golang.org/x/exp/slices"
)

// applyOrder is the order Apply writes fields in. Slug precedes title so that an explicit slug
// wins over a derived one, and content is stored last, after everything else validated.
var applyOrder = []string{
	FieldSites,
	FieldCollections,
	FieldPublished,
	FieldAuthor,
	FieldSlug,
	FieldTitle,
	FieldContent,
}

// Set writes a loosely typed value to the named field through the matching setter. Text fields
// accept only strings. Sites and collections accept a single string or a list of strings.
// Published accepts any value and coerces it by truthiness.
func (p *Post) Set(ctx context.Context, name string, value interface{}) error {
	switch name {
	case FieldID, FieldRecordType, FieldCreateTimestamp, FieldContentType:
		return fieldError(name, ErrImmutableField)

	case FieldSites, FieldCollections:
		single, many := p.SetSite, p.SetSites
		if name == FieldCollections {
			single, many = p.SetCollection, p.SetCollections
		}
		switch v := value.(type) {
		case nil:
			return fieldError(name, fmt.Errorf("%w: missing references", ErrInvalidArgument))
		case string:
			return single(ctx, v)
		case []string:
			return many(ctx, v)
		case []interface{}:
			refs := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fieldError(name, fmt.Errorf("%w: reference %v is %T", ErrInvalidType, item, item))
				}
				refs = append(refs, s)
			}
			return many(ctx, refs)
		default:
			return fieldError(name, fmt.Errorf("%w: %T", ErrInvalidType, value))
		}

	case FieldPublished:
		p.SetPublished(truthy(value))
		return nil

	case FieldAuthor, FieldTitle, FieldSlug:
		s, ok := value.(string)
		if !ok {
			return fieldError(name, fmt.Errorf("%w: %T", ErrInvalidType, value))
		}
		switch name {
		case FieldAuthor:
			return p.SetAuthor(s)
		case FieldTitle:
			return p.SetTitle(s)
		default:
			return p.SetSlug(s)
		}

	case FieldContent:
		switch v := value.(type) {
		case string:
			return p.SetContent(ctx, []byte(v))
		case []byte:
			return p.SetContent(ctx, v)
		default:
			return fieldError(name, fmt.Errorf("%w: %T", ErrInvalidType, value))
		}
	}

	return fieldError(name, fmt.Errorf("%w: unknown field", ErrInvalidArgument))
}

// Apply writes several fields at once. Either every value is accepted or the post is left
// unchanged. Content, if present, is stored last.
func (p *Post) Apply(ctx context.Context, values map[string]interface{}) error {
	for name := range values {
		if !slices.Contains(applyOrder, name) {
			// reject immutable and unknown fields up front with the usual error
			return p.clone().Set(ctx, name, values[name])
		}
	}

	staged := p.clone()
	for _, name := range applyOrder {
		value, ok := values[name]
		if !ok {
			continue
		}
		if err := staged.Set(ctx, name, value); err != nil {
			return err
		}
	}

	*p = *staged
	return nil
}

// truthy follows the usual dynamic-language notion: zero numbers, empty strings and
// collections, nil and false are false. Strings that parse as booleans use the parsed value.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return v != ""
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}
