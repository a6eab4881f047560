package dynamo

import (
	"context"
	"fmt"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ChatLinkRepo persists Telegram username -> chat ID mappings.
// PK: username. This is the durable replacement for the bot's old
// in-process cache: any instance can resolve a chat ID.
type ChatLinkRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewChatLinkRepo(client *dynamodb.Client, tableName string) *ChatLinkRepo {
	return &ChatLinkRepo{client: client, tableName: tableName}
}

func (r *ChatLinkRepo) Put(ctx context.Context, l *domain.ChatLink) error {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal chat link: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ChatLinkRepo) Get(ctx context.Context, username string) (*domain.ChatLink, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("username", username),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("chat link not found: %w", domain.ErrNotFound)
	}
	var l domain.ChatLink
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
