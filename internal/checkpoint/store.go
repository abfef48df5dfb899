// Package checkpoint persists the per-input ingestion high-water mark in
// DynamoDB. Callers treat read and write failures as soft: a failed read
// degrades to "no checkpoint yet" and a failed write only risks re-emitting
// records on the next run.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/badrinath-dash/apigee-audit-connector/internal/aws"
)

// Store encapsulates checkpoint operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore returns a configured Store bound to a checkpoint table.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get retrieves the checkpoint for one input key. If no checkpoint exists,
// it returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"input_key": &types.AttributeValueMemberS{Value: key},
		},
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// Update persists the checkpoint triple plus a current-time stamp. The
// conditional expression only allows last_event_time to move forward; a
// write that would move it backward is dropped silently, keeping the
// high-water mark monotonic even if runs are retried out of order.
func (s *Store) Update(ctx context.Context, key string, lastEventTime, eventsProcessed int64) error {
	now := s.nowFunc().UnixMilli()
	input := &dyn.PutItemInput{
		TableName: &s.tableName,
		Item: map[string]types.AttributeValue{
			"input_key":        &types.AttributeValueMemberS{Value: key},
			"last_event_time":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", lastEventTime)},
			"events_processed": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", eventsProcessed)},
			"last_updated":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
		},
		ConditionExpression: awsString("attribute_not_exists(input_key) OR last_event_time <= :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", lastEventTime)},
		},
	}

	_, err := s.client.PutItem(ctx, input)
	if err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			// a newer checkpoint already exists; nothing to do
			return nil
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Helper
func awsString(s string) *string { return &s }
