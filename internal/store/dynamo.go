package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item attribute names. The table has partition key "collection" and sort
// key "id". "ttl" holds epoch seconds for DynamoDB's native expiry.
const (
	attrCollection = "collection"
	attrID         = "id"
	attrDoc        = "doc"
	attrCreatedAt  = "created_at"
	attrUpdatedAt  = "updated_at"
	attrExpiresAt  = "expires_at"
	attrTTL        = "ttl"

	maxBatchWrite = 25
)

type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoConfig selects the table and, for local testing, an endpoint.
type DynamoConfig struct {
	Table    string
	Region   string
	Endpoint string
}

// DynamoStore implements DocStore on a single DynamoDB table.
type DynamoStore struct {
	client dynamoAPI
	table  string
	now    func() time.Time
}

// NewDynamoStore loads the default AWS configuration and connects to the table.
func NewDynamoStore(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamodb: table required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	slog.Debug("[DynamoDB] client initialized", slog.String("table", cfg.Table), slog.String("endpoint", cfg.Endpoint))
	return newDynamoStore(client, cfg.Table), nil
}

func newDynamoStore(client dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func (s *DynamoStore) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCollection: &types.AttributeValueMemberS{Value: collection},
		attrID:         &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(collection, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] get %s/%s: %w", collection, id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	doc, err := itemToDocument(out.Item)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DynamoStore) Set(ctx context.Context, doc Document) error {
	if doc.Collection == "" || doc.ID == "" {
		return errors.New("set document: collection and id required")
	}
	now := s.now().UTC()
	if doc.CreatedAt.IsZero() {
		existing, err := s.Get(ctx, doc.Collection, doc.ID)
		switch {
		case err == nil:
			doc.CreatedAt = existing.CreatedAt
		case errors.Is(err, ErrNotFound):
			doc.CreatedAt = now
		default:
			return err
		}
	}
	doc.UpdatedAt = now

	item, err := documentToItem(doc)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] put %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(collection, id),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DynamoStore) QueryByField(ctx context.Context, collection, field, value string) ([]Document, error) {
	if !fieldNameRegex.MatchString(field) {
		return nil, fmt.Errorf("query documents: invalid field name %q", field)
	}
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#c = :c"),
		FilterExpression:       aws.String("#d.#f = :v"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCollection,
			"#d": attrDoc,
			"#f": field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: collection},
			":v": &types.AttributeValueMemberS{Value: value},
		},
	})
}

func (s *DynamoStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.query(ctx, s.collectionQuery(collection))
}

func (s *DynamoStore) collectionQuery(collection string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": attrCollection},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: collection},
		},
	}
}

func (s *DynamoStore) query(ctx context.Context, in *dynamodb.QueryInput) ([]Document, error) {
	var docs []Document
	paginator := dynamodb.NewQueryPaginator(s.client, in)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] query failed: %w", err)
		}
		for _, item := range out.Items {
			doc, err := itemToDocument(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *DynamoStore) PurgeExpired(ctx context.Context, collection string, now time.Time) (int, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return 0, err
	}
	var deletes []types.WriteRequest
	for _, d := range docs {
		if !d.Expired(now) {
			continue
		}
		deletes = append(deletes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: s.key(d.Collection, d.ID)},
		})
	}

	for i := 0; i < len(deletes); i += maxBatchWrite {
		end := min(i+maxBatchWrite, len(deletes))
		if err := s.batchWrite(ctx, deletes[i:end]); err != nil {
			return i, err
		}
	}
	return len(deletes), nil
}

func (s *DynamoStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.table: requests},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] batch write: %w", err)
	}

	retryCount := 0
	backoff := 500 * time.Millisecond
	for len(out.UnprocessedItems) > 0 && retryCount < 3 {
		slog.Warn("[DynamoDB] Retrying unprocessed items...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[s.table])))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] retry batch write: %w", err)
		}
		retryCount++
	}
	if n := len(out.UnprocessedItems[s.table]); n > 0 {
		return fmt.Errorf("[DynamoDB] %d items not written after retries", n)
	}
	return nil
}

func (s *DynamoStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "dynamodb", Location: s.table}
	now := s.now()
	for _, c := range Collections() {
		docs, err := s.List(ctx, c)
		if err != nil {
			return st, err
		}
		if len(docs) == 0 {
			continue
		}
		cs := CollectionStats{Collection: c, Count: len(docs)}
		for _, d := range docs {
			if d.Expired(now) {
				cs.Expired++
			}
		}
		st.Total += cs.Count
		st.Collections = append(st.Collections, cs)
	}
	return st, nil
}

func (s *DynamoStore) Close() error {
	return nil
}

func documentToItem(doc Document) (map[string]types.AttributeValue, error) {
	body := map[string]any{}
	if len(doc.Body) > 0 {
		if err := json.Unmarshal(doc.Body, &body); err != nil {
			return nil, fmt.Errorf("[DynamoDB] document %s/%s is not a JSON object: %w", doc.Collection, doc.ID, err)
		}
	}
	av, err := attributevalue.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] marshal %s/%s: %w", doc.Collection, doc.ID, err)
	}

	item := map[string]types.AttributeValue{
		attrCollection: &types.AttributeValueMemberS{Value: doc.Collection},
		attrID:         &types.AttributeValueMemberS{Value: doc.ID},
		attrDoc:        av,
		attrCreatedAt:  &types.AttributeValueMemberS{Value: formatTime(doc.CreatedAt)},
		attrUpdatedAt:  &types.AttributeValueMemberS{Value: formatTime(doc.UpdatedAt)},
	}
	if doc.ExpiresAt != nil {
		item[attrExpiresAt] = &types.AttributeValueMemberS{Value: formatTime(*doc.ExpiresAt)}
		item[attrTTL] = &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.ExpiresAt.Unix(), 10)}
	}
	return item, nil
}

func itemToDocument(item map[string]types.AttributeValue) (Document, error) {
	var raw struct {
		Collection string         `dynamodbav:"collection"`
		ID         string         `dynamodbav:"id"`
		Doc        map[string]any `dynamodbav:"doc"`
		CreatedAt  string         `dynamodbav:"created_at"`
		UpdatedAt  string         `dynamodbav:"updated_at"`
		ExpiresAt  string         `dynamodbav:"expires_at"`
	}
	if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
		return Document{}, fmt.Errorf("[DynamoDB] unmarshal item: %w", err)
	}
	if raw.Doc == nil {
		raw.Doc = map[string]any{}
	}
	body, err := json.Marshal(raw.Doc)
	if err != nil {
		return Document{}, fmt.Errorf("[DynamoDB] encode %s/%s: %w", raw.Collection, raw.ID, err)
	}

	d := Document{Collection: raw.Collection, ID: raw.ID, Body: body}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, raw.CreatedAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, raw.UpdatedAt)
	if raw.ExpiresAt != "" {
		t, _ := time.Parse(time.RFC3339Nano, raw.ExpiresAt)
		d.ExpiresAt = &t
	}
	return d, nil
}
