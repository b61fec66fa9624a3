package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nodehub-cloud/orchestrator/internal/models"
)

// ErrNotFound is returned when no record exists for an owner and
// deployment id.
var ErrNotFound = errors.New("deployment not found")

// StatusIndexName is the secondary index keyed by status and creation
// time, used for operational scans only.
const StatusIndexName = "status-createdAt-index"

// DeploymentRepository is the keyed store of deployment records.
type DeploymentRepository interface {
	Put(ctx context.Context, deployment *models.Deployment) error
	Get(ctx context.Context, ownerID, deploymentID string) (*models.Deployment, error)
	Delete(ctx context.Context, ownerID, deploymentID string) error
	// ListByOwner returns the owner's records newest first, optionally
	// restricted to one status.
	ListByOwner(ctx context.Context, ownerID string, status models.Status) ([]*models.Deployment, error)
	// ListByStatus scans the status index for records created after
	// since. Operational use only, not exposed through the public API.
	ListByStatus(ctx context.Context, status models.Status, since time.Time) ([]*models.Deployment, error)
}

type dynamoDeploymentRepository struct {
	client *dynamodb.Client
	table  string
}

// NewDeploymentRepository returns a DeploymentRepository backed by
// DynamoDB.
func NewDeploymentRepository(awsCfg aws.Config, table string) DeploymentRepository {
	return &dynamoDeploymentRepository{
		client: dynamodb.NewFromConfig(awsCfg),
		table:  table,
	}
}

func recordKey(ownerID, deploymentID string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"ownerId":      &ddbtypes.AttributeValueMemberS{Value: ownerID},
		"deploymentId": &ddbtypes.AttributeValueMemberS{Value: deploymentID},
	}
}

func (r *dynamoDeploymentRepository) Put(ctx context.Context, deployment *models.Deployment) error {
	item, err := attributevalue.MarshalMap(deployment)
	if err != nil {
		return fmt.Errorf("marshal deployment %s: %w", deployment.DeploymentID, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put deployment %s: %w", deployment.DeploymentID, err)
	}
	return nil
}

func (r *dynamoDeploymentRepository) Get(ctx context.Context, ownerID, deploymentID string) (*models.Deployment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       recordKey(ownerID, deploymentID),
	})
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", deploymentID, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var deployment models.Deployment
	if err := attributevalue.UnmarshalMap(out.Item, &deployment); err != nil {
		return nil, fmt.Errorf("unmarshal deployment %s: %w", deploymentID, err)
	}
	return &deployment, nil
}

func (r *dynamoDeploymentRepository) Delete(ctx context.Context, ownerID, deploymentID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       recordKey(ownerID, deploymentID),
	})
	if err != nil {
		return fmt.Errorf("delete deployment %s: %w", deploymentID, err)
	}
	return nil
}

func (r *dynamoDeploymentRepository) ListByOwner(ctx context.Context, ownerID string, status models.Status) ([]*models.Deployment, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("ownerId = :ownerId"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":ownerId": &ddbtypes.AttributeValueMemberS{Value: ownerID},
		},
		// Sort key descending: newest first.
		ScanIndexForward: aws.Bool(false),
	}
	if status != "" {
		input.FilterExpression = aws.String("#status = :status")
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
		input.ExpressionAttributeValues[":status"] = &ddbtypes.AttributeValueMemberS{Value: string(status)}
	}

	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query deployments for %s: %w", ownerID, err)
	}

	deployments := make([]*models.Deployment, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &deployments); err != nil {
		return nil, fmt.Errorf("unmarshal deployments for %s: %w", ownerID, err)
	}
	return deployments, nil
}

func (r *dynamoDeploymentRepository) ListByStatus(ctx context.Context, status models.Status, since time.Time) ([]*models.Deployment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(StatusIndexName),
		KeyConditionExpression: aws.String("#status = :status AND createdAt >= :since"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":status": &ddbtypes.AttributeValueMemberS{Value: string(status)},
			":since":  &ddbtypes.AttributeValueMemberS{Value: since.UTC().Format(time.RFC3339Nano)},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("query deployments by status %s: %w", status, err)
	}

	deployments := make([]*models.Deployment, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &deployments); err != nil {
		return nil, fmt.Errorf("unmarshal deployments by status %s: %w", status, err)
	}
	return deployments, nil
}
