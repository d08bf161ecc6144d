package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

// fakeClient records calls and returns canned responses.
type fakeClient struct {
	putInputs   []*dynamodb.PutItemInput
	putErr      error
	queryOut    *dynamodb.QueryOutput
	queryErr    error
	describeErr error
}

func (f *fakeClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryOut != nil {
		return f.queryOut, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusActive},
	}, nil
}

func (f *fakeClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestRepo(t *testing.T, client *fakeClient) *Repository {
	t.Helper()
	r := NewWithClient(client, "chat-interactions", 30, zap.NewNop())
	require.NoError(t, r.Startup(context.Background()))
	return r
}

func interaction(id string) *models.Interaction {
	return &models.Interaction{
		ID:       id,
		UserID:   "u1",
		Content:  "hello",
		Response: "hi",
		Model:    "stub-1",
		Usage:    &models.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
	}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return v.Value
}

func TestSaveMarshalsItem(t *testing.T) {
	fake := &fakeClient{}
	r := newTestRepo(t, fake)

	in := interaction("A")
	require.NoError(t, r.Save(context.Background(), in))
	require.Len(t, fake.putInputs, 1)

	put := fake.putInputs[0]
	require.Equal(t, "chat-interactions", *put.TableName)
	require.Equal(t, "attribute_not_exists(user_id)", *put.ConditionExpression)

	require.Equal(t, "u1", attrS(put.Item, "user_id"))
	require.Equal(t, "A", attrS(put.Item, "id"))
	require.Contains(t, attrS(put.Item, "sk"), "#A", "sort key must embed the id")
	require.NotEmpty(t, attrS(put.Item, "created_at"))
	require.NotEmpty(t, attrS(put.Item, "usage"))
	_, hasTTL := put.Item["expires_at"].(*types.AttributeValueMemberN)
	require.True(t, hasTTL, "expiry attribute must be numeric")
}

func TestSaveSortKeyDeterministic(t *testing.T) {
	fake := &fakeClient{}
	r := newTestRepo(t, fake)

	in := interaction("A")
	require.NoError(t, r.Save(context.Background(), in))
	require.NoError(t, r.Save(context.Background(), in))
	require.Len(t, fake.putInputs, 2)

	// CreatedAt was stamped on the first save, so the retry targets the
	// exact same item.
	require.Equal(t, attrS(fake.putInputs[0].Item, "sk"), attrS(fake.putInputs[1].Item, "sk"))
}

func TestSaveDuplicateIsNoOp(t *testing.T) {
	fake := &fakeClient{putErr: &types.ConditionalCheckFailedException{}}
	r := newTestRepo(t, fake)

	require.NoError(t, r.Save(context.Background(), interaction("A")),
		"a conditional-check failure means the item already exists and must not error")
}

func TestSaveConnectivityError(t *testing.T) {
	fake := &fakeClient{putErr: errors.New("connection reset")}
	r := newTestRepo(t, fake)

	err := r.Save(context.Background(), interaction("A"))
	require.ErrorIs(t, err, errs.ErrStorage)
}

func TestSaveValidationFailsFast(t *testing.T) {
	fake := &fakeClient{}
	r := newTestRepo(t, fake)

	in := interaction("A")
	in.UserID = ""
	err := r.Save(context.Background(), in)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Empty(t, fake.putInputs, "invalid input must not reach the client")
}

func TestGetHistory(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeClient{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			{
				"user_id":    &types.AttributeValueMemberS{Value: "u1"},
				"sk":         &types.AttributeValueMemberS{Value: "0000000000002#C"},
				"id":         &types.AttributeValueMemberS{Value: "C"},
				"content":    &types.AttributeValueMemberS{Value: "hello"},
				"response":   &types.AttributeValueMemberS{Value: "hi"},
				"model":      &types.AttributeValueMemberS{Value: "stub-1"},
				"usage":      &types.AttributeValueMemberS{Value: `{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}`},
				"created_at": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
				"expires_at": &types.AttributeValueMemberN{Value: "1790000000"},
			},
			{
				"user_id":    &types.AttributeValueMemberS{Value: "u1"},
				"sk":         &types.AttributeValueMemberS{Value: "0000000000001#B"},
				"id":         &types.AttributeValueMemberS{Value: "B"},
				"content":    &types.AttributeValueMemberS{Value: "earlier"},
				"response":   &types.AttributeValueMemberS{Value: "ok"},
				"created_at": &types.AttributeValueMemberS{Value: now.Add(-time.Second).Format(time.RFC3339Nano)},
				"expires_at": &types.AttributeValueMemberN{Value: "1790000000"},
			},
		},
	}}
	r := newTestRepo(t, fake)

	history, err := r.GetHistory(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "C", history[0].ID)
	require.Equal(t, "B", history[1].ID)
	require.NotNil(t, history[0].Usage)
	require.Equal(t, 4, history[0].Usage.TotalTokens)
	require.Nil(t, history[1].Usage)
	require.Equal(t, now, history[0].CreatedAt)
}

func TestGetHistoryEmpty(t *testing.T) {
	r := newTestRepo(t, &fakeClient{})

	history, err := r.GetHistory(context.Background(), "nobody", 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestHealthCheck(t *testing.T) {
	r := newTestRepo(t, &fakeClient{})
	require.True(t, r.HealthCheck(context.Background()))

	down := NewWithClient(&fakeClient{describeErr: errors.New("timeout")}, "chat-interactions", 30, zap.NewNop())
	require.False(t, down.HealthCheck(context.Background()))
}
