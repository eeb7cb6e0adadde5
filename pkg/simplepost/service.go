package simplepost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost/slug"
)

// Service creates, loads and saves posts against a configured pair of stores
type Service interface {
	// NewPost returns a fresh, unsaved post
	NewPost() *Post

	// CreatePost builds a post from explicit values. The post is not saved.
	CreatePost(ctx context.Context, params PostParams) (*Post, error)

	// LoadPost loads a saved post by identifier
	LoadPost(ctx context.Context, id uuid.UUID) (*Post, error)

	// SavePost persists the post's fields
	SavePost(ctx context.Context, post *Post) error

	// RegisterSite creates a site marker record so posts may reference it. A ref that
	// already keys a record of another type fails with ErrTypeMismatch.
	RegisterSite(ctx context.Context, ref string) error

	// RegisterCollection creates a collection marker record
	RegisterCollection(ctx context.Context, ref string) error
}

// service implements the Service interface
type service struct {
	records  RecordStore
	contents ContentStore
	slugs    slug.Generator
	now      func() time.Time
	logger   *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRecordStore sets the record store
func WithRecordStore(store RecordStore) Option {
	return func(s *service) {
		s.records = store
	}
}

// WithContentStore sets the content store
func WithContentStore(store ContentStore) Option {
	return func(s *service) {
		s.contents = store
	}
}

// WithSlugGenerator sets the slug generator handed to every post
func WithSlugGenerator(g slug.Generator) Option {
	return func(s *service) {
		s.slugs = g
	}
}

// WithClock sets the time source for creation timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		slugs:  slug.New(),
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if s.contents == nil {
		return nil, fmt.Errorf("content store is required")
	}

	return s, nil
}

func (s *service) postOptions() []PostOption {
	return []PostOption{SlugGenerator(s.slugs), Clock(s.now)}
}

func (s *service) NewPost() *Post {
	return NewPost(s.records, s.contents, s.postOptions()...)
}

func (s *service) CreatePost(ctx context.Context, params PostParams) (*Post, error) {
	post, err := CreatePost(ctx, s.records, s.contents, params, s.postOptions()...)
	if err != nil {
		s.logger.Debug("Rejected post", "err", err)
		return nil, err
	}
	return post, nil
}

func (s *service) LoadPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, err := LoadPost(ctx, s.records, s.contents, id, s.postOptions()...)
	if err != nil {
		s.logger.Debug("Failed to load post", "id", id, "err", err)
		return nil, err
	}
	return post, nil
}

func (s *service) SavePost(ctx context.Context, post *Post) error {
	if err := post.Save(ctx); err != nil {
		s.logger.Error("Failed to save post", "id", post.ID(), "err", err)
		return err
	}
	s.logger.Debug("Saved post", "id", post.ID(), "fields", post.Fields().Names())
	return nil
}

func (s *service) RegisterSite(ctx context.Context, ref string) error {
	return s.register(ctx, RecordTypeSite, ref)
}

func (s *service) RegisterCollection(ctx context.Context, ref string) error {
	return s.register(ctx, RecordTypeCollection, ref)
}

func (s *service) register(ctx context.Context, recordType, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty %s reference", ErrInvalidArgument, recordType)
	}
	if err := s.checkUnclaimed(ctx, recordType, ref); err != nil {
		if !errors.Is(err, ErrTypeMismatch) {
			s.logger.Error("Failed to check reference", "type", recordType, "ref", ref, "err", err)
		}
		return err
	}
	if err := s.records.Save(ctx, MarkerFields(recordType, ref)); err != nil {
		s.logger.Error("Failed to register reference", "type", recordType, "ref", ref, "err", err)
		return err
	}
	return nil
}

// checkUnclaimed fails with ErrTypeMismatch when ref already keys a record of another type.
// Sites, collections and posts share one keyspace.
func (s *service) checkUnclaimed(ctx context.Context, recordType, ref string) error {
	isSite, err := s.records.IsSite(ctx, ref)
	if err != nil {
		return err
	}
	isCollection, err := s.records.IsCollection(ctx, ref)
	if err != nil {
		return err
	}
	switch {
	case isSite && recordType == RecordTypeSite, isCollection && recordType == RecordTypeCollection:
		return nil
	case isSite:
		return fmt.Errorf("%w: %q is a %s", ErrTypeMismatch, ref, RecordTypeSite)
	case isCollection:
		return fmt.Errorf("%w: %q is a %s", ErrTypeMismatch, ref, RecordTypeCollection)
	}

	id, err := uuid.Parse(ref)
	if err != nil {
		return nil
	}
	fields, err := s.records.LoadByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rt := fields.RecordType(); rt != recordType {
		return fmt.Errorf("%w: %q is a %s", ErrTypeMismatch, ref, rt)
	}
	return nil
}
