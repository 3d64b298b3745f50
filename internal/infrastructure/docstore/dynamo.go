package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const dynamoUpdateAttempts = 5

// Dynamo stores documents in a single DynamoDB table keyed by
// (collection, id). Per-record atomicity for Update is provided by a
// conditional write on the rev attribute.
type Dynamo struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoDocument represents the DynamoDB item structure
type dynamoDocument struct {
	Collection string `dynamodbav:"collection"`
	ID         string `dynamodbav:"id"`
	Data       string `dynamodbav:"data"`
	Rev        int64  `dynamodbav:"rev"`
}

func NewDynamo(client *dynamodb.Client, tableName string) *Dynamo {
	return &Dynamo{client: client, tableName: tableName}
}

func (d *Dynamo) Put(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	current, ok, err := d.getItem(ctx, collection, id)
	if err != nil {
		return err
	}
	rev := int64(1)
	if ok {
		rev = current.Rev + 1
	}

	item := dynamoDocument{
		Collection: collection,
		ID:         id,
		Data:       string(raw),
		Rev:        rev,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (d *Dynamo) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	item, ok, err := d.getItem(ctx, collection, id)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(item.Data), out); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dynamo) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("#c = :collection"),
		ExpressionAttributeNames: map[string]string{
			"#c": "collection",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":collection": &types.AttributeValueMemberS{Value: collection},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	var docs []json.RawMessage
	for _, item := range out.Items {
		var doc dynamoDocument
		if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		docs = append(docs, json.RawMessage(doc.Data))
	}
	return docs, nil
}

// Update retries on conditional-write conflicts so racing writers
// serialize per record.
func (d *Dynamo) Update(ctx context.Context, collection, id string, fn func(raw []byte) ([]byte, error)) error {
	for attempt := 0; attempt < dynamoUpdateAttempts; attempt++ {
		current, ok, err := d.getItem(ctx, collection, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		updated, err := fn([]byte(current.Data))
		if err != nil {
			return err
		}

		item := dynamoDocument{
			Collection: collection,
			ID:         id,
			Data:       string(updated),
			Rev:        current.Rev + 1,
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(d.tableName),
			Item:                av,
			ConditionExpression: aws.String("rev = :rev"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", current.Rev)},
			},
		})
		if err == nil {
			return nil
		}

		var conditionFailed *types.ConditionalCheckFailedException
		if !errors.As(err, &conditionFailed) {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		// Lost the race, reload and retry.
	}
	return ErrConflict
}

func (d *Dynamo) Delete(ctx context.Context, collection, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (d *Dynamo) getItem(ctx context.Context, collection, id string) (dynamoDocument, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dynamoDocument{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if out.Item == nil {
		return dynamoDocument{}, false, nil
	}

	var doc dynamoDocument
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return dynamoDocument{}, false, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, true, nil
}
