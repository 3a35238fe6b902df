// Package dynamo is a cache.Store backed by a DynamoDB table with TTL enabled
// on the "ttl" attribute.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"content-assist/internal/cache"
)

const skEntry = "ENTRY#"

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Store wraps a DynamoDB table holding one item per cache key.
type Store struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new Store.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("dynamo: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamo: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName, now: time.Now}, nil
}

// Get reads the item for key. DynamoDB removes expired items lazily, so the
// ttl attribute is checked here as well.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key},
			"SK": &types.AttributeValueMemberS{Value: skEntry},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, cache.ErrMiss
	}

	expiresAt, err := intAttr(out.Item, "ttl")
	if err != nil {
		return nil, fmt.Errorf("dynamo: decode ttl: %w", err)
	}
	if s.now().Unix() >= expiresAt {
		return nil, cache.ErrMiss
	}
	value, err := bytesAttr(out.Item, "value")
	if err != nil {
		return nil, fmt.Errorf("dynamo: decode value: %w", err)
	}
	return value, nil
}

// Set writes or replaces the item for key.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("dynamo: ttl must be positive")
	}
	now := s.now().UTC()
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: key},
			"SK":        &types.AttributeValueMemberS{Value: skEntry},
			"value":     &types.AttributeValueMemberB{Value: value},
			"createdAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(ttl).Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo: put item: %w", err)
	}
	return nil
}

func bytesAttr(item map[string]types.AttributeValue, key string) ([]byte, error) {
	v, ok := item[key]
	if !ok {
		return nil, fmt.Errorf("dynamo: missing attribute %q", key)
	}
	b, ok := v.(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("dynamo: attribute %q is not binary", key)
	}
	return b.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("dynamo: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamo: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dynamo: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
