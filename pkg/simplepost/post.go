package simplepost

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost/slug"
	"golang.org/x/exp/slices"
)

// Field length limits, in characters
const (
	MaxAuthorLength = 64
	MaxTitleLength  = 256
	MaxSlugLength   = slug.DefaultMaxLength
)

// Post is a content record whose metadata lives in a RecordStore and whose body lives in a
// ContentStore. Fields change only through the setters, each of which validates its input and
// leaves the post untouched on error. A Post is not safe for concurrent mutation.
type Post struct {
	records  RecordStore
	contents ContentStore
	slugs    slug.Generator
	now      func() time.Time

	id              uuid.UUID
	recordType      string
	createTimestamp time.Time
	sites           []string
	collections     []string
	published       bool
	author          string
	title           string
	slug            string
	contentType     string
	content         Pointer
}

// PostOption configures how a Post derives values
type PostOption func(*Post)

// SlugGenerator sets the generator used to derive slugs from titles
func SlugGenerator(g slug.Generator) PostOption {
	return func(p *Post) {
		if g != nil {
			p.slugs = g
		}
	}
}

// Clock sets the time source used for the creation timestamp
func Clock(now func() time.Time) PostOption {
	return func(p *Post) {
		if now != nil {
			p.now = now
		}
	}
}

// PostParams holds the field values for CreatePost. Zero ID and CreateTimestamp are replaced
// with fresh values; nil Sites, Collections and Content are left unset.
type PostParams struct {
	ID              uuid.UUID
	CreateTimestamp time.Time
	Sites           []string
	Collections     []string
	Published       bool
	Author          string
	Title           string
	Slug            string
	Content         []byte
}

func newPost(records RecordStore, contents ContentStore, opts []PostOption) *Post {
	p := &Post{
		records:     records,
		contents:    contents,
		slugs:       slug.New(),
		now:         time.Now,
		recordType:  RecordTypePost,
		contentType: ContentTypeMarkdown,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// NewPost creates a fresh post with a new identifier and creation time
func NewPost(records RecordStore, contents ContentStore, opts ...PostOption) *Post {
	p := newPost(records, contents, opts)
	p.id = uuid.New()
	p.createTimestamp = p.now().UTC()
	return p
}

// CreatePost creates a post from explicit values, routing each through its setter. An explicit
// slug is applied before the title so it is not replaced by a derived one.
func CreatePost(ctx context.Context, records RecordStore, contents ContentStore, params PostParams, opts ...PostOption) (*Post, error) {
	p := NewPost(records, contents, opts...)
	if params.ID != uuid.Nil {
		p.id = params.ID
	}
	if !params.CreateTimestamp.IsZero() {
		p.createTimestamp = params.CreateTimestamp.UTC()
	}

	if params.Sites != nil {
		if err := p.SetSites(ctx, params.Sites); err != nil {
			return nil, err
		}
	}
	if params.Collections != nil {
		if err := p.SetCollections(ctx, params.Collections); err != nil {
			return nil, err
		}
	}
	p.SetPublished(params.Published)
	if err := p.SetAuthor(params.Author); err != nil {
		return nil, err
	}
	if err := p.SetSlug(params.Slug); err != nil {
		return nil, err
	}
	if params.Title != "" {
		if err := p.SetTitle(params.Title); err != nil {
			return nil, err
		}
	}
	if params.Content != nil {
		if err := p.SetContent(ctx, params.Content); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadPost loads a persisted post. The stored field set is adopted as-is; it must carry
// recordType "Post".
func LoadPost(ctx context.Context, records RecordStore, contents ContentStore, id uuid.UUID, opts ...PostOption) (*Post, error) {
	fields, err := records.LoadByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, &RecordError{ID: id, Op: "load", Err: ErrRecordNotFound}
		}
		return nil, err
	}

	if rt := fields.RecordType(); rt != RecordTypePost {
		return nil, &RecordError{ID: id, Op: "load", Err: fmt.Errorf("%w: found %q", ErrTypeMismatch, rt)}
	}

	p := newPost(records, contents, opts)
	p.id = id
	if err := p.adopt(fields); err != nil {
		return nil, &RecordError{ID: id, Op: "load", Err: err}
	}
	return p, nil
}

func (p *Post) adopt(fields FieldSet) error {
	for _, f := range fields {
		var ok bool
		switch f.Name {
		case FieldID:
			p.id, ok = f.Value.(uuid.UUID)
		case FieldRecordType:
			p.recordType, ok = f.Value.(string)
		case FieldCreateTimestamp:
			var ts time.Time
			ts, ok = f.Value.(time.Time)
			p.createTimestamp = ts.UTC()
		case FieldSites:
			var refs []string
			refs, ok = f.Value.([]string)
			p.sites = slices.Clone(refs)
		case FieldCollections:
			var refs []string
			refs, ok = f.Value.([]string)
			p.collections = slices.Clone(refs)
		case FieldPublished:
			p.published, ok = f.Value.(bool)
		case FieldAuthor:
			p.author, ok = f.Value.(string)
		case FieldTitle:
			p.title, ok = f.Value.(string)
		case FieldSlug:
			p.slug, ok = f.Value.(string)
		case FieldContentType:
			p.contentType, ok = f.Value.(string)
		case FieldContent:
			p.content, ok = f.Value.(Pointer)
		default:
			ok = true
		}
		if !ok {
			return fieldError(f.Name, ErrInvalidType)
		}
	}
	return nil
}

// ID returns the post identifier
func (p *Post) ID() uuid.UUID { return p.id }

// RecordType returns the record kind, always "Post"
func (p *Post) RecordType() string { return p.recordType }

// CreateTimestamp returns the creation time in UTC
func (p *Post) CreateTimestamp() time.Time { return p.createTimestamp }

// Sites returns a copy of the site references
func (p *Post) Sites() []string { return slices.Clone(p.sites) }

// Collections returns a copy of the collection references
func (p *Post) Collections() []string { return slices.Clone(p.collections) }

// Published reports whether the post is published
func (p *Post) Published() bool { return p.published }

// Author returns the author
func (p *Post) Author() string { return p.author }

// Title returns the title
func (p *Post) Title() string { return p.title }

// Slug returns the slug
func (p *Post) Slug() string { return p.slug }

// ContentType returns the content type of the post body
func (p *Post) ContentType() string { return p.contentType }

// ContentPointer returns the pointer to the post body in the content store
func (p *Post) ContentPointer() Pointer { return p.content }

// SetSites replaces the site references. Every reference must exist in the record store; on
// the first unknown reference nothing is changed. A nil slice is rejected, an empty one clears.
// Duplicate references are dropped.
func (p *Post) SetSites(ctx context.Context, refs []string) error {
	verified, err := p.verifyRefs(ctx, FieldSites, refs, p.records.IsSite)
	if err != nil {
		return err
	}
	p.sites = unique(verified)
	return nil
}

// SetSite replaces the site references with a single reference
func (p *Post) SetSite(ctx context.Context, ref string) error {
	if ref == "" {
		return fieldError(FieldSites, fmt.Errorf("%w: empty reference", ErrInvalidArgument))
	}
	return p.SetSites(ctx, []string{ref})
}

// SetCollections replaces the collection references, with the same rules as SetSites except
// that order and duplicates are kept.
func (p *Post) SetCollections(ctx context.Context, refs []string) error {
	verified, err := p.verifyRefs(ctx, FieldCollections, refs, p.records.IsCollection)
	if err != nil {
		return err
	}
	p.collections = verified
	return nil
}

// SetCollection replaces the collection references with a single reference
func (p *Post) SetCollection(ctx context.Context, ref string) error {
	if ref == "" {
		return fieldError(FieldCollections, fmt.Errorf("%w: empty reference", ErrInvalidArgument))
	}
	return p.SetCollections(ctx, []string{ref})
}

func (p *Post) verifyRefs(ctx context.Context, field string, refs []string, exists func(context.Context, string) (bool, error)) ([]string, error) {
	if refs == nil {
		return nil, fieldError(field, fmt.Errorf("%w: missing references", ErrInvalidArgument))
	}
	for _, ref := range refs {
		ok, err := exists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ReferenceError{Field: field, Ref: ref}
		}
	}
	return slices.Clone(refs), nil
}

// SetPublished sets the published flag
func (p *Post) SetPublished(published bool) {
	p.published = published
}

// SetAuthor sets the author, at most 64 characters
func (p *Post) SetAuthor(author string) error {
	if err := checkLength(FieldAuthor, author, MaxAuthorLength); err != nil {
		return err
	}
	p.author = author
	return nil
}

// SetTitle sets the title, at most 256 characters. When the slug is empty it is derived from
// the title.
func (p *Post) SetTitle(title string) error {
	if err := checkLength(FieldTitle, title, MaxTitleLength); err != nil {
		return err
	}

	derived := p.slug
	if derived == "" {
		derived = p.slugs.Generate(title)
		if err := validateSlug(derived); err != nil {
			// generators must produce valid slugs
			panic(fmt.Sprintf("simplepost: slug generator produced invalid slug %q: %v", derived, err))
		}
	}

	p.title = title
	p.slug = derived
	return nil
}

// SetSlug sets the slug: at most 32 characters of lower-case letters and digits separated by
// single hyphens. The empty string clears it.
func (p *Post) SetSlug(s string) error {
	if err := validateSlug(s); err != nil {
		return err
	}
	p.slug = s
	return nil
}

func validateSlug(s string) error {
	if err := checkLength(FieldSlug, s, MaxSlugLength); err != nil {
		return err
	}
	if s != "" && !slug.IsValid(s) {
		return fieldError(FieldSlug, fmt.Errorf("%w: %q is not URL-safe", ErrInvalidArgument, s))
	}
	return nil
}

// Content resolves the post body through the content store. A post without content yields nil.
func (p *Post) Content(ctx context.Context) ([]byte, error) {
	if p.content.IsEmpty() {
		return nil, nil
	}
	return p.contents.Resolve(ctx, p.content)
}

// SetContent stores the body in the content store and keeps the returned pointer.
// TODO: validate markdown once a parser is chosen for rendering.
func (p *Post) SetContent(ctx context.Context, content []byte) error {
	ptr, err := p.contents.Store(ctx, content)
	if err != nil {
		return err
	}
	p.content = ptr
	return nil
}

// HasContent reports whether the post body exists in the content store. An empty body
// counts as no content even though the post keeps its pointer.
func (p *Post) HasContent(ctx context.Context) (bool, error) {
	if p.content.IsEmpty() {
		return false, nil
	}
	return p.contents.Exists(ctx, p.content)
}

// Fields returns the populated fields in a stable order. The published flag is always
// included since false is an explicit state.
func (p *Post) Fields() FieldSet {
	fs := FieldSet{
		{Name: FieldID, Value: p.id},
		{Name: FieldRecordType, Value: p.recordType},
	}
	if !p.createTimestamp.IsZero() {
		fs = append(fs, Field{Name: FieldCreateTimestamp, Value: p.createTimestamp})
	}
	if len(p.sites) > 0 {
		fs = append(fs, Field{Name: FieldSites, Value: slices.Clone(p.sites)})
	}
	if len(p.collections) > 0 {
		fs = append(fs, Field{Name: FieldCollections, Value: slices.Clone(p.collections)})
	}
	fs = append(fs, Field{Name: FieldPublished, Value: p.published})
	for _, f := range []Field{
		{Name: FieldAuthor, Value: p.author},
		{Name: FieldTitle, Value: p.title},
		{Name: FieldSlug, Value: p.slug},
		{Name: FieldContentType, Value: p.contentType},
	} {
		if f.Value.(string) != "" {
			fs = append(fs, f)
		}
	}
	if !p.content.IsEmpty() {
		fs = append(fs, Field{Name: FieldContent, Value: p.content})
	}
	return fs
}

// Save upserts the post's fields in the record store. Store errors are returned unchanged.
func (p *Post) Save(ctx context.Context) error {
	return p.records.Save(ctx, p.Fields())
}

func (p *Post) clone() *Post {
	c := *p
	c.sites = slices.Clone(p.sites)
	c.collections = slices.Clone(p.collections)
	return &c
}

func checkLength(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return fieldError(field, fmt.Errorf("%w: %d characters, max %d", ErrTooLong, n, max))
	}
	return nil
}

func unique(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
