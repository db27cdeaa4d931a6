package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// DBClient defines the DynamoDB operations the stores use, so tests can
// substitute a fake for *dynamodb.Client.
type DBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Key layout of the single table
const (
	lyricPrefix      = "LYRIC#"
	ownerPrefix      = "OWNER#"
	annotationPrefix = "ANNOTATION#"
	versionPrefix    = "VERSION#"
	lockPrefix       = "LOCK#"

	metadataSK   = "METADATA"
	publicGSI2PK = "PUBLIC"

	entityLyric      = "LYRIC"
	entityAnnotation = "ANNOTATION"
	entityVersion    = "VERSION"

	maxBatchWriteItems = 25
	maxBatchRetries    = 3
)

func lyricPK(docID string) string { return lyricPrefix + docID }

func ownerGSI1PK(ownerID string) string { return ownerPrefix + ownerID }

func annotationSK(annotationID string) string { return annotationPrefix + annotationID }

// Zero-padded so lexicographic SK order matches numeric version order.
func versionSK(version int) string { return fmt.Sprintf("%s%010d", versionPrefix, version) }

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// isConditionalCheckFailed reports whether err is a failed write guard
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

// deleteByPrefix removes every item in partition pk whose sort key starts
// with skPrefix, in batches of 25. Unprocessed items are retried a few
// times before giving up.
func deleteByPrefix(ctx context.Context, client DBClient, tableName, pk, skPrefix string) (int, error) {
	keys := make([]map[string]types.AttributeValue, 0)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}
	for {
		out, err := client.Query(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("failed to query items for deletion: %w", err)
		}
		keys = append(keys, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	deleted := 0
	for start := 0; start < len(keys); start += maxBatchWriteItems {
		end := start + maxBatchWriteItems
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"PK": key["PK"],
					"SK": key["SK"],
				}},
			})
		}

		remaining, err := batchDelete(ctx, client, tableName, requests)
		deleted += len(requests) - remaining
		if err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}

// batchDelete returns how many requests were still unprocessed
func batchDelete(ctx context.Context, client DBClient, tableName string, requests []types.WriteRequest) (int, error) {
	pending := requests
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= maxBatchRetries; attempt++ {
		out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{tableName: pending},
		})
		if err != nil {
			return len(pending), fmt.Errorf("failed to batch delete: %w", err)
		}

		pending = out.UnprocessedItems[tableName]
		if len(pending) == 0 {
			return 0, nil
		}

		select {
		case <-ctx.Done():
			return len(pending), ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return len(pending), fmt.Errorf("batch delete left %d unprocessed items", len(pending))
}
