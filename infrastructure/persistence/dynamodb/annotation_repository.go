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

// AnnotationRepository implements ports.AnnotationRepository using DynamoDB.
// Annotations live in their document's partition.
type AnnotationRepository struct {
	client         DBClient
	tableName      string
	allowOwnerless bool
	logger         *zap.Logger
}

// NewAnnotationRepository creates a new DynamoDB annotation repository
func NewAnnotationRepository(client DBClient, tableName string, allowOwnerless bool, logger *zap.Logger) *AnnotationRepository {
	return &AnnotationRepository{
		client:         client,
		tableName:      tableName,
		allowOwnerless: allowOwnerless,
		logger:         logger,
	}
}

// annotationItem represents an annotation in DynamoDB. OwnerID is absent
// on items written before owner stamping.
type annotationItem struct {
	PK           string                 `dynamodbav:"PK"`
	SK           string                 `dynamodbav:"SK"`
	EntityType   string                 `dynamodbav:"EntityType"`
	AnnotationID string                 `dynamodbav:"AnnotationID"`
	DocID        string                 `dynamodbav:"DocID"`
	OwnerID      string                 `dynamodbav:"OwnerID,omitempty"`
	AuthorID     string                 `dynamodbav:"AuthorID"`
	Start        int                    `dynamodbav:"Start"`
	End          int                    `dynamodbav:"End"`
	Tag          string                 `dynamodbav:"Tag"`
	Comment      string                 `dynamodbav:"Comment,omitempty"`
	Props        map[string]interface{} `dynamodbav:"Props,omitempty"`
	Version      int                    `dynamodbav:"Version"`
	CreatedAt    string                 `dynamodbav:"CreatedAt"`
	UpdatedAt    string                 `dynamodbav:"UpdatedAt"`
}

func toAnnotationItem(a *entities.Annotation) annotationItem {
	return annotationItem{
		PK:           lyricPK(a.DocID),
		SK:           annotationSK(a.AnnotationID),
		EntityType:   entityAnnotation,
		AnnotationID: a.AnnotationID,
		DocID:        a.DocID,
		OwnerID:      a.OwnerID,
		AuthorID:     a.AuthorID,
		Start:        a.Start,
		End:          a.End,
		Tag:          a.Tag,
		Comment:      a.Comment,
		Props:        a.Props,
		Version:      a.Version,
		CreatedAt:    utils.FormatTimestamp(a.CreatedAt),
		UpdatedAt:    utils.FormatTimestamp(a.UpdatedAt),
	}
}

func unmarshalAnnotation(av map[string]types.AttributeValue) (*entities.Annotation, error) {
	var item annotationItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotation: %w", err)
	}
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on %s: %w", item.SK, err)
	}
	updatedAt, err := utils.ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt on %s: %w", item.SK, err)
	}
	return &entities.Annotation{
		AnnotationID: item.AnnotationID,
		DocID:        item.DocID,
		OwnerID:      item.OwnerID,
		AuthorID:     item.AuthorID,
		Start:        item.Start,
		End:          item.End,
		Tag:          item.Tag,
		Comment:      item.Comment,
		Props:        item.Props,
		Version:      item.Version,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// ownerGuard matches items stamped with ownerID, and unstamped legacy
// items when those are allowed
func (r *AnnotationRepository) ownerGuard(ownerID string) expression.ConditionBuilder {
	owned := expression.Name("OwnerID").Equal(expression.Value(ownerID))
	if !r.allowOwnerless {
		return owned
	}
	return owned.Or(expression.AttributeNotExists(expression.Name("OwnerID")))
}

// Create stores a new annotation under an attribute_not_exists guard
func (r *AnnotationRepository) Create(ctx context.Context, annotation *entities.Annotation) error {
	av, err := attributevalue.MarshalMap(toAnnotationItem(annotation))
	if err != nil {
		return fmt.Errorf("failed to marshal annotation: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return errors.AlreadyExists("annotation", annotation.AnnotationID)
		}
		return fmt.Errorf("failed to put annotation: %w", err)
	}
	return nil
}

// ListByDoc returns the annotations of docID visible to ownerID
func (r *AnnotationRepository) ListByDoc(ctx context.Context, docID, ownerID string) ([]*entities.Annotation, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(lyricPK(docID))).
		And(expression.Key("SK").BeginsWith(annotationPrefix))
	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithFilter(r.ownerGuard(ownerID)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build annotation query: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}

	annotations := make([]*entities.Annotation, 0)
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query annotations: %w", err)
		}
		for _, av := range out.Items {
			a, err := unmarshalAnnotation(av)
			if err != nil {
				r.logger.Warn("Skipping malformed annotation item",
					zap.String("docID", docID),
					zap.Error(err),
				)
				continue
			}
			annotations = append(annotations, a)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return annotations, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Update rewrites an annotation guarded on existence and ownership. The
// caller's owner stamp is written too, which backfills legacy items.
func (r *AnnotationRepository) Update(ctx context.Context, docID, annotationID, ownerID string, changes ports.AnnotationChanges, now time.Time) (*entities.Annotation, error) {
	cond := expression.AttributeExists(expression.Name("SK")).And(r.ownerGuard(ownerID))
	update := expression.Set(expression.Name("Start"), expression.Value(changes.Start)).
		Set(expression.Name("End"), expression.Value(changes.End)).
		Set(expression.Name("Tag"), expression.Value(changes.Tag)).
		Set(expression.Name("OwnerID"), expression.Value(ownerID)).
		Set(expression.Name("UpdatedAt"), expression.Value(utils.FormatTimestamp(now))).
		Set(expression.Name("Version"), expression.Plus(
			expression.IfNotExists(expression.Name("Version"), expression.Value(0)),
			expression.Value(1),
		))
	if changes.Comment != "" {
		update = update.Set(expression.Name("Comment"), expression.Value(changes.Comment))
	} else {
		update = update.Remove(expression.Name("Comment"))
	}
	if len(changes.Props) > 0 {
		update = update.Set(expression.Name("Props"), expression.Value(changes.Props))
	} else {
		update = update.Remove(expression.Name("Props"))
	}

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(update).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build annotation update: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(lyricPK(docID), annotationSK(annotationID)),
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, errors.NotFound("annotation", annotationID)
		}
		return nil, fmt.Errorf("failed to update annotation: %w", err)
	}

	return unmarshalAnnotation(out.Attributes)
}

// Delete removes an annotation guarded on existence and ownership
func (r *AnnotationRepository) Delete(ctx context.Context, docID, annotationID, ownerID string) error {
	cond := expression.AttributeExists(expression.Name("SK")).And(r.ownerGuard(ownerID))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build annotation delete: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(lyricPK(docID), annotationSK(annotationID)),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return errors.NotFound("annotation", annotationID)
		}
		return fmt.Errorf("failed to delete annotation: %w", err)
	}
	return nil
}

// DeleteAllByDoc removes every annotation in the document partition
func (r *AnnotationRepository) DeleteAllByDoc(ctx context.Context, docID string) (int, error) {
	n, err := deleteByPrefix(ctx, r.client, r.tableName, lyricPK(docID), annotationPrefix)
	if err != nil {
		return n, fmt.Errorf("failed to purge annotations of %s: %w", docID, err)
	}
	return n, nil
}
