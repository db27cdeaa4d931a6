package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// LyricRepository implements ports.LyricRepository using DynamoDB
type LyricRepository struct {
	client      DBClient
	tableName   string
	ownerIndex  string
	publicIndex string
	logger      *zap.Logger
}

// NewLyricRepository creates a new DynamoDB lyric repository. Empty index
// names make listings fall back to a filtered table scan.
func NewLyricRepository(client DBClient, tableName, ownerIndex, publicIndex string, logger *zap.Logger) *LyricRepository {
	return &LyricRepository{
		client:      client,
		tableName:   tableName,
		ownerIndex:  ownerIndex,
		publicIndex: publicIndex,
		logger:      logger,
	}
}

// lyricItem represents a document in DynamoDB
type lyricItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	GSI2PK       string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK       string `dynamodbav:"GSI2SK,omitempty"`
	EntityType   string `dynamodbav:"EntityType"`
	DocID        string `dynamodbav:"DocID"`
	OwnerID      string `dynamodbav:"OwnerID"`
	OwnerName    string `dynamodbav:"OwnerName,omitempty"`
	Title        string `dynamodbav:"Title"`
	Artist       string `dynamodbav:"Artist"`
	Text         string `dynamodbav:"Text"`
	Version      int    `dynamodbav:"Version"`
	IsPublicView bool   `dynamodbav:"IsPublicView"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
}

func toLyricItem(doc *entities.LyricDocument) lyricItem {
	item := lyricItem{
		PK:           lyricPK(doc.DocID),
		SK:           metadataSK,
		GSI1PK:       ownerGSI1PK(doc.OwnerID),
		GSI1SK:       lyricPK(doc.DocID),
		EntityType:   entityLyric,
		DocID:        doc.DocID,
		OwnerID:      doc.OwnerID,
		OwnerName:    doc.OwnerName,
		Title:        doc.Title,
		Artist:       doc.Artist,
		Text:         doc.Text,
		Version:      doc.Version,
		IsPublicView: doc.IsPublicView,
		CreatedAt:    utils.FormatTimestamp(doc.CreatedAt),
		UpdatedAt:    utils.FormatTimestamp(doc.UpdatedAt),
	}
	if doc.IsPublicView {
		item.GSI2PK = publicGSI2PK
		item.GSI2SK = lyricPK(doc.DocID)
	}
	return item
}

func (i lyricItem) toEntity() (*entities.LyricDocument, error) {
	createdAt, err := utils.ParseTimestamp(i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on %s: %w", i.PK, err)
	}
	updatedAt, err := utils.ParseTimestamp(i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt on %s: %w", i.PK, err)
	}
	return &entities.LyricDocument{
		DocID:        i.DocID,
		OwnerID:      i.OwnerID,
		OwnerName:    i.OwnerName,
		Title:        i.Title,
		Artist:       i.Artist,
		Text:         i.Text,
		Version:      i.Version,
		IsPublicView: i.IsPublicView,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func unmarshalLyric(av map[string]types.AttributeValue) (*entities.LyricDocument, error) {
	var item lyricItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lyric: %w", err)
	}
	return item.toEntity()
}

// Create stores a new document under an attribute_not_exists guard
func (r *LyricRepository) Create(ctx context.Context, doc *entities.LyricDocument) error {
	av, err := attributevalue.MarshalMap(toLyricItem(doc))
	if err != nil {
		return fmt.Errorf("failed to marshal lyric: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return errors.AlreadyExists("lyric", doc.DocID)
		}
		return fmt.Errorf("failed to put lyric: %w", err)
	}

	r.logger.Debug("Lyric stored",
		zap.String("docID", doc.DocID),
		zap.String("ownerID", doc.OwnerID),
	)
	return nil
}

// GetByID retrieves a document by its ID
func (r *LyricRepository) GetByID(ctx context.Context, docID string) (*entities.LyricDocument, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(lyricPK(docID), metadataSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lyric: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, errors.NotFound("lyric", docID)
	}
	return unmarshalLyric(out.Item)
}

// ListByOwner retrieves all documents owned by ownerID
func (r *LyricRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.LyricDocument, error) {
	if r.ownerIndex != "" {
		return r.query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(r.ownerIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: ownerGSI1PK(ownerID)},
				":prefix": &types.AttributeValueMemberS{Value: lyricPrefix},
			},
		})
	}

	filter := expression.Name("EntityType").Equal(expression.Value(entityLyric)).
		And(expression.Name("OwnerID").Equal(expression.Value(ownerID)))
	return r.scan(ctx, filter)
}

// ListPublic retrieves all shared documents
func (r *LyricRepository) ListPublic(ctx context.Context) ([]*entities.LyricDocument, error) {
	if r.publicIndex != "" {
		return r.query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(r.publicIndex),
			KeyConditionExpression: aws.String("GSI2PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: publicGSI2PK},
			},
		})
	}

	filter := expression.Name("EntityType").Equal(expression.Value(entityLyric)).
		And(expression.Name("IsPublicView").Equal(expression.Value(true)))
	return r.scan(ctx, filter)
}

func (r *LyricRepository) query(ctx context.Context, input *dynamodb.QueryInput) ([]*entities.LyricDocument, error) {
	docs := make([]*entities.LyricDocument, 0)
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query lyrics: %w", err)
		}
		for _, av := range out.Items {
			doc, err := unmarshalLyric(av)
			if err != nil {
				r.logger.Warn("Skipping malformed lyric item", zap.Error(err))
				continue
			}
			docs = append(docs, doc)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return docs, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *LyricRepository) scan(ctx context.Context, filter expression.ConditionBuilder) ([]*entities.LyricDocument, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan filter: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	docs := make([]*entities.LyricDocument, 0)
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lyrics: %w", err)
		}
		for _, av := range out.Items {
			doc, err := unmarshalLyric(av)
			if err != nil {
				r.logger.Warn("Skipping malformed lyric item", zap.Error(err))
				continue
			}
			docs = append(docs, doc)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return docs, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// UpdateContent replaces content and increments the version in one
// conditional write guarded on owner and expected version
func (r *LyricRepository) UpdateContent(ctx context.Context, docID, ownerID string, expectedVersion int, changes ports.ContentChanges, now time.Time) (*entities.LyricDocument, error) {
	cond := expression.Name("OwnerID").Equal(expression.Value(ownerID)).
		And(expression.Name("Version").Equal(expression.Value(expectedVersion)))
	update := expression.Set(expression.Name("Title"), expression.Value(changes.Title)).
		Set(expression.Name("Artist"), expression.Value(changes.Artist)).
		Set(expression.Name("Text"), expression.Value(changes.Text)).
		Set(expression.Name("UpdatedAt"), expression.Value(utils.FormatTimestamp(now))).
		Set(expression.Name("Version"), expression.Name("Version").Plus(expression.Value(1)))

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(update).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(lyricPK(docID), metadataSK),
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, errors.VersionConflictOrForbidden(docID, expectedVersion)
		}
		return nil, fmt.Errorf("failed to update lyric: %w", err)
	}

	return unmarshalLyric(out.Attributes)
}

// UpdateSharing sets the public flag and maintains the sparse public index keys
func (r *LyricRepository) UpdateSharing(ctx context.Context, docID, ownerID string, isPublic bool, ownerName *string) (*entities.LyricDocument, error) {
	cond := expression.Name("OwnerID").Equal(expression.Value(ownerID))
	update := expression.Set(expression.Name("IsPublicView"), expression.Value(isPublic))
	if isPublic {
		update = update.
			Set(expression.Name("GSI2PK"), expression.Value(publicGSI2PK)).
			Set(expression.Name("GSI2SK"), expression.Value(lyricPK(docID)))
	} else {
		update = update.Remove(expression.Name("GSI2PK")).Remove(expression.Name("GSI2SK"))
	}
	if ownerName != nil {
		update = update.Set(expression.Name("OwnerName"), expression.Value(*ownerName))
	}

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(update).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build share expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(lyricPK(docID), metadataSK),
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, errors.Forbidden("lyric is missing or owned by another user")
		}
		return nil, fmt.Errorf("failed to share lyric: %w", err)
	}

	return unmarshalLyric(out.Attributes)
}

// Delete removes the document item guarded on owner
func (r *LyricRepository) Delete(ctx context.Context, docID, ownerID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 itemKey(lyricPK(docID), metadataSK),
		ConditionExpression: aws.String("OwnerID = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return errors.Forbidden("lyric is missing or owned by another user")
		}
		return fmt.Errorf("failed to delete lyric: %w", err)
	}

	r.logger.Debug("Lyric item deleted", zap.String("docID", docID))
	return nil
}
