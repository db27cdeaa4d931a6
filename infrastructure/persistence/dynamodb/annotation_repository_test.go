package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAnnotation() *entities.Annotation {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return entities.NewAnnotation("ann-1", "doc-1", "owner-A", "owner-A", 0, 5, "vibrato", "", nil, now)
}

func TestAnnotationRepository_Create(t *testing.T) {
	db := &fakeDB{}
	repo := NewAnnotationRepository(db, testTable, true, zap.NewNop())

	require.NoError(t, repo.Create(context.Background(), testAnnotation()))

	item := db.putInputs[0].Item
	assert.Equal(t, "LYRIC#doc-1", stringAttr(item, "PK"))
	assert.Equal(t, "ANNOTATION#ann-1", stringAttr(item, "SK"))
	assert.NotContains(t, item, "Comment")

	db.putFn = func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, conditionFailed()
	}
	err := repo.Create(context.Background(), testAnnotation())
	assert.True(t, stderrors.Is(err, errors.ErrAlreadyExists))
}

func TestAnnotationRepository_ListByDocOwnerFilter(t *testing.T) {
	tests := []struct {
		name           string
		allowOwnerless bool
		wantLegacy     bool
	}{
		{name: "legacy allowed", allowOwnerless: true, wantLegacy: true},
		{name: "legacy rejected", allowOwnerless: false, wantLegacy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{}
			repo := NewAnnotationRepository(db, testTable, tt.allowOwnerless, zap.NewNop())

			_, err := repo.ListByDoc(context.Background(), "doc-1", "owner-A")
			require.NoError(t, err)

			in := db.queryInputs[0]
			assert.True(t, aws.ToBool(in.ConsistentRead))
			assert.Equal(t, tt.wantLegacy, strings.Contains(aws.ToString(in.FilterExpression), "attribute_not_exists"))
		})
	}
}

func TestAnnotationRepository_ListByDocSkipsMalformed(t *testing.T) {
	good, err := attributevalue.MarshalMap(toAnnotationItem(testAnnotation()))
	require.NoError(t, err)
	bad := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: "LYRIC#doc-1"},
		"SK":        &types.AttributeValueMemberS{Value: "ANNOTATION#broken"},
		"CreatedAt": &types.AttributeValueMemberS{Value: "not a time"},
	}
	db := &fakeDB{queryFn: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{bad, good}}, nil
	}}
	repo := NewAnnotationRepository(db, testTable, true, zap.NewNop())

	annotations, err := repo.ListByDoc(context.Background(), "doc-1", "owner-A")

	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, "ann-1", annotations[0].AnnotationID)
}

func TestAnnotationRepository_UpdateAndDeleteGuards(t *testing.T) {
	changes := ports.AnnotationChanges{Start: 1, End: 4, Tag: "breath"}
	db := &fakeDB{
		updateFn: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return nil, conditionFailed()
		},
		deleteFn: func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			return nil, conditionFailed()
		},
	}
	repo := NewAnnotationRepository(db, testTable, false, zap.NewNop())

	_, err := repo.Update(context.Background(), "doc-1", "ann-1", "owner-B", changes, time.Now())
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.Contains(t, aws.ToString(db.updateInputs[0].UpdateExpression), "REMOVE")

	err = repo.Delete(context.Background(), "doc-1", "ann-1", "owner-B")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "ANNOTATION#ann-1", stringAttr(db.deleteInputs[0].Key, "SK"))
}

func TestAnnotationRepository_DeleteAllByDocBatches(t *testing.T) {
	items := make([]map[string]types.AttributeValue, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, itemKey("LYRIC#doc-1", annotationSK(fmt.Sprintf("a%02d", i))))
	}
	db := &fakeDB{queryFn: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		return &dynamodb.QueryOutput{Items: items}, nil
	}}
	repo := NewAnnotationRepository(db, testTable, true, zap.NewNop())

	n, err := repo.DeleteAllByDoc(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 30, n)
	require.Len(t, db.batchInputs, 2)
	assert.Len(t, db.batchInputs[0].RequestItems[testTable], maxBatchWriteItems)
	assert.Len(t, db.batchInputs[1].RequestItems[testTable], 5)
}

func TestAnnotationRepository_DeleteAllByDocReportsLeftovers(t *testing.T) {
	items := []map[string]types.AttributeValue{
		itemKey("LYRIC#doc-1", annotationSK("a")),
		itemKey("LYRIC#doc-1", annotationSK("b")),
	}
	db := &fakeDB{
		queryFn: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: items}, nil
		},
		batchFn: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			// the last request never goes through
			reqs := in.RequestItems[testTable]
			return &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]types.WriteRequest{testTable: reqs[len(reqs)-1:]},
			}, nil
		},
	}
	repo := NewAnnotationRepository(db, testTable, true, zap.NewNop())

	n, err := repo.DeleteAllByDoc(context.Background(), "doc-1")

	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, db.batchInputs, maxBatchRetries+1)
}
