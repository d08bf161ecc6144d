// Package dynamo implements the interaction log on DynamoDB. Records are
// partitioned by user id with a time-ordered sort key, so one user's
// history is colocated and a recency query is a single partition read.
// A global secondary index on the interaction id serves point lookups.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
	"github.com/chatcore-ai/chatcore/pkg/storage"
)

// Client is the subset of the DynamoDB API the repository uses. Tests
// substitute a fake; production uses *dynamodb.Client.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// item is the persisted record layout. The sort key embeds the write
// time and the id, which keeps a partition time-ordered while staying
// deterministic for a retried save of the same interaction.
type item struct {
	UserID    string `dynamodbav:"user_id"`
	SK        string `dynamodbav:"sk"`
	ID        string `dynamodbav:"id"`
	Content   string `dynamodbav:"content"`
	Response  string `dynamodbav:"response"`
	Model     string `dynamodbav:"model,omitempty"`
	Usage     string `dynamodbav:"usage,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// Repository stores interactions in a DynamoDB table.
type Repository struct {
	client Client
	table  string
	region string
	ttl    time.Duration
	logger *zap.Logger
}

var _ storage.Repository = (*Repository)(nil)

// New creates a Repository for the given table. The AWS client is built
// from the default credential chain during Startup.
func New(table, region string, ttlDays int, logger *zap.Logger) *Repository {
	return &Repository{
		table:  table,
		region: region,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logger,
	}
}

// NewWithClient creates a Repository with an injected client.
func NewWithClient(client Client, table string, ttlDays int, logger *zap.Logger) *Repository {
	return &Repository{
		client: client,
		table:  table,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logger,
	}
}

// Startup builds the client if needed and ensures the table exists.
func (r *Repository) Startup(ctx context.Context) error {
	if r.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(r.region))
		if err != nil {
			return errs.Storage(fmt.Errorf("load aws config: %w", err))
		}
		r.client = dynamodb.NewFromConfig(cfg)
	}

	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err == nil {
		r.logger.Info("dynamodb repository ready", zap.String("table", r.table))
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return errs.Storage(fmt.Errorf("describe table %s: %w", r.table, err))
	}

	r.logger.Info("dynamodb table missing, creating", zap.String("table", r.table))
	return r.createTable(ctx)
}

func (r *Repository) createTable(ctx context.Context) error {
	_, err := r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String("id-index"),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return errs.Storage(fmt.Errorf("create table %s: %w", r.table, err))
	}

	// Poll until the table is active; CreateTable returns immediately.
	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		out, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(r.table),
		})
		if err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive {
			r.logger.Info("dynamodb table created", zap.String("table", r.table))
			return nil
		}
		select {
		case <-ctx.Done():
			return errs.Storage(ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return errs.Storagef("table %s did not become active", r.table)
}

// Shutdown is a no-op; the SDK client holds no long-lived connections
// that need explicit teardown.
func (r *Repository) Shutdown(ctx context.Context) error { return nil }

// sortKey embeds the write time and id. Deterministic for a given
// interaction once CreatedAt is stamped, so caller retries target the
// same item.
func sortKey(in *models.Interaction) string {
	return fmt.Sprintf("%013d#%s", in.CreatedAt.UnixMilli(), in.ID)
}

// Save appends one interaction. The conditional put makes a retried
// save of an already-stored interaction a no-op instead of a duplicate
// item.
func (r *Repository) Save(ctx context.Context, in *models.Interaction) error {
	if err := storage.ValidateForSave(in); err != nil {
		return err
	}
	if r.client == nil {
		return errs.Storagef("repository not started")
	}

	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	rec := item{
		UserID:    in.UserID,
		SK:        sortKey(in),
		ID:        in.ID,
		Content:   in.Content,
		Response:  in.Response,
		Model:     in.Model,
		CreatedAt: in.CreatedAt.Format(time.RFC3339Nano),
		ExpiresAt: in.CreatedAt.Add(r.ttl).Unix(),
	}
	if in.Usage != nil {
		data, err := json.Marshal(in.Usage)
		if err != nil {
			return errs.Storage(fmt.Errorf("encode usage: %w", err))
		}
		rec.Usage = string(data)
	}

	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return errs.Storage(fmt.Errorf("marshal item: %w", err))
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		var dup *types.ConditionalCheckFailedException
		if errors.As(err, &dup) {
			r.logger.Debug("duplicate interaction id ignored", zap.String("id", in.ID))
			return nil
		}
		return errs.Storage(fmt.Errorf("put item: %w", err))
	}
	return nil
}

// GetHistory queries the user's partition newest first.
func (r *Repository) GetHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if r.client == nil {
		return nil, errs.Storagef("repository not started")
	}
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("query history: %w", err))
	}

	history := make([]models.Interaction, 0, len(out.Items))
	for _, raw := range out.Items {
		var rec item
		if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
			return nil, errs.Storage(fmt.Errorf("unmarshal item: %w", err))
		}

		in := models.Interaction{
			ID:       rec.ID,
			UserID:   rec.UserID,
			Content:  rec.Content,
			Response: rec.Response,
			Model:    rec.Model,
		}
		if ts, err := time.Parse(time.RFC3339Nano, rec.CreatedAt); err == nil {
			in.CreatedAt = ts
		}
		if rec.Usage != "" {
			var u models.Usage
			if err := json.Unmarshal([]byte(rec.Usage), &u); err == nil {
				in.Usage = &u
			}
		}
		history = append(history, in)
	}
	return history, nil
}

// HealthCheck describes the table and reports false on any error.
func (r *Repository) HealthCheck(ctx context.Context) bool {
	if r.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		r.logger.Warn("dynamodb health check failed", zap.Error(err))
		return false
	}
	return true
}
