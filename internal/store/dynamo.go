package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoItem is the persisted table row. The ttl attribute drives DynamoDB's
// own reaping of expired entries.
type dynamoItem struct {
	PK      string `dynamodbav:"pk"`
	SK      string `dynamodbav:"sk"`
	Payload []byte `dynamodbav:"payload"`
	TTL     int64  `dynamodbav:"ttl"`
}

// DynamoAPI is the slice of the DynamoDB client the backend uses.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoBackend implements Backend on a DynamoDB table with partition key
// "pk", sort key "sk" and TTL enabled on "ttl". The table's own reaper
// deletes expired items with a lag of up to hours, so reads filter on the
// ttl attribute instead of trusting deletion to have happened.
type DynamoBackend struct {
	client DynamoAPI
	table  string

	now func() time.Time
}

// NewDynamoBackend wraps an existing DynamoDB client. The client is shared,
// pooled and safe for concurrent use.
func NewDynamoBackend(client DynamoAPI, table string) *DynamoBackend {
	return &DynamoBackend{client: client, table: table, now: time.Now}
}

// QueryDescending implements Backend with a begins_with key condition and
// ScanIndexForward=false so the newest revision comes back first. Expired
// items are filtered server side; Limit applies before the filter, so a
// window may come back short, which the caller's merge tolerates.
func (d *DynamoBackend) QueryDescending(ctx context.Context, partitionKey, sortKeyPrefix string, limit int) ([]Record, error) {
	nowEpoch := d.now().Unix()

	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		FilterExpression:       aws.String("#ttl > :now"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: partitionKey},
			":prefix": &types.AttributeValueMemberS{Value: sortKeyPrefix},
			":now":    &types.AttributeValueMemberN{Value: strconv.FormatInt(nowEpoch, 10)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb query failed: %w", err)
	}

	var items []dynamoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("dynamodb unmarshal failed: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, it := range items {
		// Second check for endpoints that return items without evaluating
		// the filter.
		if it.TTL > 0 && it.TTL <= nowEpoch {
			continue
		}
		records = append(records, Record{
			PartitionKey: it.PK,
			SortKey:      it.SK,
			Payload:      it.Payload,
			ExpiresAt:    time.Unix(it.TTL, 0),
		})
	}
	return records, nil
}

// Put implements Backend.
func (d *DynamoBackend) Put(ctx context.Context, rec Record) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		PK:      rec.PartitionKey,
		SK:      rec.SortKey,
		Payload: rec.Payload,
		TTL:     rec.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("dynamodb marshal failed: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put failed: %w", err)
	}
	return nil
}
