package dynamodb

import (
	"context"
	stderrors "errors"
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

const testTable = "annotune-test"

func testDoc() *entities.LyricDocument {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return entities.NewLyricDocument("doc-1", "owner-A", "Aoi", "Song", "Band", "hello world", now)
}

func marshalDoc(t *testing.T, doc *entities.LyricDocument) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(toLyricItem(doc))
	require.NoError(t, err)
	return av
}

func TestLyricRepository_Create(t *testing.T) {
	t.Run("writes keys and guard", func(t *testing.T) {
		db := &fakeDB{}
		repo := NewLyricRepository(db, testTable, "GSI1", "GSI2", zap.NewNop())

		require.NoError(t, repo.Create(context.Background(), testDoc()))

		require.Len(t, db.putInputs, 1)
		in := db.putInputs[0]
		assert.Equal(t, "attribute_not_exists(PK)", aws.ToString(in.ConditionExpression))
		assert.Equal(t, "LYRIC#doc-1", stringAttr(in.Item, "PK"))
		assert.Equal(t, "METADATA", stringAttr(in.Item, "SK"))
		assert.Equal(t, "OWNER#owner-A", stringAttr(in.Item, "GSI1PK"))
		assert.NotContains(t, in.Item, "GSI2PK", "private documents stay out of the public index")
		assert.Equal(t, "2024-03-01T09:30:00.000Z", stringAttr(in.Item, "CreatedAt"))
	})

	t.Run("guard failure is AlreadyExists", func(t *testing.T) {
		db := &fakeDB{putFn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, conditionFailed()
		}}
		repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

		err := repo.Create(context.Background(), testDoc())

		assert.True(t, stderrors.Is(err, errors.ErrAlreadyExists))
	})
}

func TestLyricRepository_GetByID(t *testing.T) {
	doc := testDoc()

	t.Run("found", func(t *testing.T) {
		db := &fakeDB{getFn: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: marshalDoc(t, doc)}, nil
		}}
		repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

		got, err := repo.GetByID(context.Background(), "doc-1")

		require.NoError(t, err)
		assert.Equal(t, doc, got)
		assert.True(t, aws.ToBool(db.getInputs[0].ConsistentRead))
	})

	t.Run("missing", func(t *testing.T) {
		repo := NewLyricRepository(&fakeDB{}, testTable, "", "", zap.NewNop())

		_, err := repo.GetByID(context.Background(), "doc-1")

		assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	})
}

func TestLyricRepository_UpdateContent(t *testing.T) {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	changes := ports.ContentChanges{Title: "T2", Artist: "A", Text: "T2 body"}

	t.Run("returns stored record", func(t *testing.T) {
		updated := testDoc()
		updated.Title, updated.Text, updated.Version, updated.UpdatedAt = "T2", "T2 body", 2, now
		db := &fakeDB{updateFn: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return &dynamodb.UpdateItemOutput{Attributes: marshalDoc(t, updated)}, nil
		}}
		repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

		got, err := repo.UpdateContent(context.Background(), "doc-1", "owner-A", 1, changes, now)

		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		in := db.updateInputs[0]
		assert.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
		assert.Contains(t, aws.ToString(in.ConditionExpression), "AND")
		assert.Equal(t, "LYRIC#doc-1", stringAttr(in.Key, "PK"))
	})

	t.Run("guard failure is VersionConflictOrForbidden", func(t *testing.T) {
		db := &fakeDB{updateFn: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return nil, conditionFailed()
		}}
		repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

		_, err := repo.UpdateContent(context.Background(), "doc-1", "owner-B", 1, changes, now)

		assert.True(t, errors.IsVersionConflict(err))
	})

	t.Run("other failures stay infrastructure errors", func(t *testing.T) {
		db := &fakeDB{updateFn: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return nil, stderrors.New("throttled")
		}}
		repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

		_, err := repo.UpdateContent(context.Background(), "doc-1", "owner-A", 1, changes, now)

		require.Error(t, err)
		assert.Nil(t, errors.GetDomainError(err))
	})
}

func TestLyricRepository_UpdateSharing(t *testing.T) {
	shared := testDoc()
	shared.IsPublicView = true

	db := &fakeDB{updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return &dynamodb.UpdateItemOutput{Attributes: marshalDoc(t, shared)}, nil
	}}
	repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

	_, err := repo.UpdateSharing(context.Background(), "doc-1", "owner-A", true, nil)
	require.NoError(t, err)
	assert.Contains(t, aws.ToString(db.updateInputs[0].UpdateExpression), "SET")

	_, err = repo.UpdateSharing(context.Background(), "doc-1", "owner-A", false, nil)
	require.NoError(t, err)
	assert.Contains(t, aws.ToString(db.updateInputs[1].UpdateExpression), "REMOVE")

	db.updateFn = func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return nil, conditionFailed()
	}
	_, err = repo.UpdateSharing(context.Background(), "doc-1", "owner-B", true, nil)
	assert.True(t, stderrors.Is(err, errors.ErrForbidden))
}

func TestLyricRepository_Delete(t *testing.T) {
	db := &fakeDB{deleteFn: func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
		return nil, conditionFailed()
	}}
	repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

	err := repo.Delete(context.Background(), "doc-1", "wrong-owner")

	assert.True(t, stderrors.Is(err, errors.ErrForbidden))
	assert.Equal(t, "OwnerID = :owner", aws.ToString(db.deleteInputs[0].ConditionExpression))
}

func TestLyricRepository_ListByOwner(t *testing.T) {
	doc := testDoc()

	t.Run("uses owner index and follows pages", func(t *testing.T) {
		calls := 0
		db := &fakeDB{queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			calls++
			if calls == 1 {
				return &dynamodb.QueryOutput{
					Items:            []map[string]types.AttributeValue{marshalDoc(t, doc)},
					LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}},
				}, nil
			}
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{marshalDoc(t, doc)}}, nil
		}}
		repo := NewLyricRepository(db, testTable, "GSI1", "", zap.NewNop())

		docs, err := repo.ListByOwner(context.Background(), "owner-A")

		require.NoError(t, err)
		assert.Len(t, docs, 2)
		assert.Equal(t, "GSI1", aws.ToString(db.queryInputs[0].IndexName))
		assert.Empty(t, db.scanInputs)
	})

	t.Run("falls back to scan without index", func(t *testing.T) {
		db := &fakeDB{scanFn: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
			return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{marshalDoc(t, doc)}}, nil
		}}
		repo := NewLyricRepository(db, testTable, "", "", zap.NewNop())

		docs, err := repo.ListByOwner(context.Background(), "owner-A")

		require.NoError(t, err)
		assert.Len(t, docs, 1)
		require.Len(t, db.scanInputs, 1)
		assert.NotNil(t, db.scanInputs[0].FilterExpression)
		assert.Empty(t, db.queryInputs)
	})
}
