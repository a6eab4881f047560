package dynamo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ContractRepo provides typed DynamoDB operations for the contracts table.
type ContractRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewContractRepo(client *dynamodb.Client, tableName string) *ContractRepo {
	return &ContractRepo{client: client, tableName: tableName}
}

func (r *ContractRepo) Put(ctx context.Context, c *domain.Contract) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ContractRepo) Get(ctx context.Context, contractID string) (*domain.Contract, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("contract_id", contractID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("contract not found: %w", domain.ErrNotFound)
	}
	var c domain.Contract
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepo) Update(ctx context.Context, contractID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("contract_id", contractID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// UpdateStatus performs the compare-and-swap the state machine relies on:
// the write succeeds only if the stored status still equals fromStatus.
// A failed condition means another request already moved the contract on,
// which surfaces as domain.ErrInvalidTransition.
func (r *ContractRepo) UpdateStatus(ctx context.Context, contractID, fromStatus, toStatus string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#st"] = "status"
	ue.Values[":from"] = &types.AttributeValueMemberS{Value: fromStatus}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("contract_id", contractID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(contract_id) AND #st = :from"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("contract no longer in %s: %w", fromStatus, domain.ErrInvalidTransition)
		}
		return err
	}
	return nil
}

// ScanPage returns a page of contracts.
// cursor is a base64-encoded contract_id used as ExclusiveStartKey.
func (r *ContractRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Contract, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		contractID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("contract_id", contractID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var contracts []domain.Contract
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &contracts); err != nil {
		return nil, "", err
	}
	next := ""
	if out.LastEvaluatedKey != nil {
		if id, ok := out.LastEvaluatedKey["contract_id"].(*types.AttributeValueMemberS); ok {
			next = encodeCursor(id.Value)
		}
	}
	return contracts, next, nil
}

func encodeCursor(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(id))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
