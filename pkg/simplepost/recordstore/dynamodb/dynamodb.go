// Package dynamodb provides a RecordStore backed by a single DynamoDB table keyed by "id".
// Every record kind shares the table and carries a "recordType" attribute.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost"
)

// Config options for the DynamoDB store
type Config struct {
	Table           string // Table name
	Region          string // AWS region (default: us-east-1)
	AccessKeyID     string // Optional static credentials
	SecretAccessKey string
	Endpoint        string // Optional custom endpoint, e.g. DynamoDB Local
	ConsistentRead  bool   // Use strongly consistent reads
}

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

var _ simplepost.RecordStore = (*Store)(nil)

// Store implements simplepost.RecordStore using DynamoDB
type Store struct {
	client         API
	table          string
	consistentRead bool
}

// New creates a store over an existing client
func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// NewFromConfig builds a DynamoDB client from config and wraps it
func NewFromConfig(config Config) (*Store, error) {
	if config.Table == "" {
		return nil, errors.New("table name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*dynamodb.Options)
	if config.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}

	store := New(dynamodb.NewFromConfig(awsCfg, clientOpts...), config.Table)
	store.consistentRead = config.ConsistentRead
	return store, nil
}

// IsSite reports whether a site marker record exists for ref
func (s *Store) IsSite(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ctx, ref, simplepost.RecordTypeSite)
}

// IsCollection reports whether a collection marker record exists for ref
func (s *Store) IsCollection(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ctx, ref, simplepost.RecordTypeCollection)
}

func (s *Store) hasType(ctx context.Context, ref, recordType string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(s.table),
		Key:                      key(ref),
		ProjectionExpression:     aws.String("#t"),
		ExpressionAttributeNames: map[string]string{"#t": simplepost.FieldRecordType},
		ConsistentRead:           aws.Bool(s.consistentRead),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", recordType, ref, err)
	}
	if out.Item == nil {
		return false, nil
	}
	t, ok := out.Item[simplepost.FieldRecordType].(*types.AttributeValueMemberS)
	return ok && t.Value == recordType, nil
}

// LoadByID loads the item stored for id
func (s *Store) LoadByID(ctx context.Context, id uuid.UUID) (simplepost.FieldSet, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(id.String()),
		ConsistentRead: aws.Bool(s.consistentRead),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, simplepost.ErrRecordNotFound
	}

	var raw map[string]interface{}
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return simplepost.NormalizeFieldSet(raw)
}

// Save puts the field set as an item, replacing any previous item with the same id
func (s *Store) Save(ctx context.Context, fields simplepost.FieldSet) error {
	id, err := fields.Key()
	if err != nil {
		return err
	}

	plain := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		v, err := plainValue(f.Value)
		if err != nil {
			return fmt.Errorf("failed to encode field %s: %w", f.Name, err)
		}
		plain[f.Name] = v
	}
	item, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}
	// the key attribute is always a string, whatever type the id value has
	item[simplepost.FieldID] = &types.AttributeValueMemberS{Value: id}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", id, err)
	}
	return nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		simplepost.FieldID: &types.AttributeValueMemberS{Value: id},
	}
}

// plainValue converts field values to types attributevalue encodes as S, BOOL, N or L
func plainValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, string, bool, []string, int, float64:
		return x, nil
	case simplepost.Pointer:
		return string(x), nil
	case uuid.UUID:
		return x.String(), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	}
	return nil, fmt.Errorf("%w: unsupported value type %T", simplepost.ErrInvalidType, v)
}
