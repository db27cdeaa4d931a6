package dynamodb

import (
	"context"
	"fmt"

	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// VersionRepository implements ports.VersionRepository using DynamoDB.
// Snapshots share their document's partition under VERSION# sort keys.
type VersionRepository struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewVersionRepository creates a new DynamoDB snapshot repository
func NewVersionRepository(client DBClient, tableName string, logger *zap.Logger) *VersionRepository {
	return &VersionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// snapshotItem represents a version snapshot in DynamoDB
type snapshotItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	DocID      string `dynamodbav:"DocID"`
	Version    int    `dynamodbav:"Version"`
	Title      string `dynamodbav:"Title"`
	Artist     string `dynamodbav:"Artist"`
	Text       string `dynamodbav:"Text"`
	AuthorID   string `dynamodbav:"AuthorID"`
	OwnerID    string `dynamodbav:"OwnerID,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func (r *VersionRepository) marshal(s *entities.VersionSnapshot) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(snapshotItem{
		PK:         lyricPK(s.DocID),
		SK:         versionSK(s.Version),
		EntityType: entityVersion,
		DocID:      s.DocID,
		Version:    s.Version,
		Title:      s.Title,
		Artist:     s.Artist,
		Text:       s.Text,
		AuthorID:   s.AuthorID,
		OwnerID:    s.OwnerID,
		CreatedAt:  utils.FormatTimestamp(s.CreatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return av, nil
}

func unmarshalSnapshot(av map[string]types.AttributeValue) (*entities.VersionSnapshot, error) {
	var item snapshotItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on %s: %w", item.SK, err)
	}
	return &entities.VersionSnapshot{
		DocID:     item.DocID,
		Version:   item.Version,
		Title:     item.Title,
		Artist:    item.Artist,
		Text:      item.Text,
		AuthorID:  item.AuthorID,
		OwnerID:   item.OwnerID,
		CreatedAt: createdAt,
	}, nil
}

// Append writes a snapshot unconditionally
func (r *VersionRepository) Append(ctx context.Context, snapshot *entities.VersionSnapshot) error {
	av, err := r.marshal(snapshot)
	if err != nil {
		return err
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}

	r.logger.Debug("Snapshot appended",
		zap.String("docID", snapshot.DocID),
		zap.Int("version", snapshot.Version),
	)
	return nil
}

// AppendIfAbsent writes a snapshot only when its version has none
func (r *VersionRepository) AppendIfAbsent(ctx context.Context, snapshot *entities.VersionSnapshot) (bool, error) {
	av, err := r.marshal(snapshot)
	if err != nil {
		return false, err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to put snapshot: %w", err)
	}
	return true, nil
}

// List returns all snapshots of docID, newest first
func (r *VersionRepository) List(ctx context.Context, docID string) ([]*entities.VersionSnapshot, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: lyricPK(docID)},
			":prefix": &types.AttributeValueMemberS{Value: versionPrefix},
		},
		ScanIndexForward: aws.Bool(false),
	}

	snapshots := make([]*entities.VersionSnapshot, 0)
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query snapshots: %w", err)
		}
		for _, av := range out.Items {
			s, err := unmarshalSnapshot(av)
			if err != nil {
				r.logger.Warn("Skipping malformed snapshot item",
					zap.String("docID", docID),
					zap.Error(err),
				)
				continue
			}
			snapshots = append(snapshots, s)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return snapshots, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Get returns one snapshot
func (r *VersionRepository) Get(ctx context.Context, docID string, version int) (*entities.VersionSnapshot, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(lyricPK(docID), versionSK(version)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, errors.NotFound("version", fmt.Sprintf("%s@%d", docID, version))
	}
	return unmarshalSnapshot(out.Item)
}

// DeleteAll removes every snapshot of docID
func (r *VersionRepository) DeleteAll(ctx context.Context, docID string) (int, error) {
	n, err := deleteByPrefix(ctx, r.client, r.tableName, lyricPK(docID), versionPrefix)
	if err != nil {
		return n, fmt.Errorf("failed to purge snapshots of %s: %w", docID, err)
	}
	return n, nil
}
