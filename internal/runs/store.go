// Package runs records one row per pipeline invocation so operators can see
// from the table alone whether ingestion is healthy, stalled, or failing.
package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/badrinath-dash/apigee-audit-connector/internal/aws"
)

// ErrStatusMismatch indicates a conditional status transition failed,
// e.g. finishing a run that is not RUNNING.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates operations on the run-history table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new run-history Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Begin records a new run in RUNNING state.
func (s *Store) Begin(ctx context.Context, runID, inputKey string, windowStartMS, windowEndMS int64) error {
	run := Run{
		RunID:         runID,
		InputKey:      inputKey,
		Status:        StatusRunning,
		WindowStartMS: windowStartMS,
		WindowEndMS:   windowEndMS,
		StartedAt:     s.nowFunc().UnixMilli(),
	}

	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(run_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return fmt.Errorf("run id already exists: %s", runID)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Finish transitions a RUNNING run to COMPLETED or FAILED. Returns
// ErrStatusMismatch if the run is not currently RUNNING.
func (s *Store) Finish(ctx context.Context, runID, status string, eventsProcessed int64, runErr string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
		UpdateExpression:         awsString("SET #s = :new, events_processed = :ep, #e = :err, finished_at = :fa"),
		ExpressionAttributeNames: map[string]string{"#s": "status", "#e": "error"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: status},
			":ep":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", eventsProcessed)},
			":err":      &types.AttributeValueMemberS{Value: runErr},
			":fa":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.UnixMilli())},
			":expected": &types.AttributeValueMemberS{Value: StatusRunning},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Get fetches a run by run_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r Run
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

func awsString(s string) *string { return &s }
