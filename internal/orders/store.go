package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
)

// Item key prefixes. Orders, uniqueness guards and daily counters share one table keyed by pk.
const (
	prefixOrder       = "ORDER#"
	prefixISBN        = "ISBN#"
	prefixTitleAuthor = "TITLEAUTHOR#"
	prefixDaily       = "DAILY#"

	entityOrder   = "order"
	entityGuard   = "guard"
	entityCounter = "counter"
)

// condition used on every insert into the table
const notExists = "attribute_not_exists(pk)"

// orderItem is the shape persisted in the orders DynamoDB table.
type orderItem struct {
	PK            string     `dynamodbav:"pk"`
	Entity        string     `dynamodbav:"entity"`
	OrderID       string     `dynamodbav:"order_id"`
	Title         string     `dynamodbav:"title"`
	Author        string     `dynamodbav:"author"`
	ISBN          string     `dynamodbav:"isbn"`
	Category      string     `dynamodbav:"category"`
	Price         string     `dynamodbav:"price"` // decimal string, exact
	PublishedDate time.Time  `dynamodbav:"published_date"`
	CoverImageURL string     `dynamodbav:"cover_image_url,omitempty"`
	StockQuantity int        `dynamodbav:"stock_quantity"`
	CreatedAt     time.Time  `dynamodbav:"created_at"`
	UpdatedAt     *time.Time `dynamodbav:"updated_at,omitempty"`
}

// guardItem reserves a unique value for one order.
type guardItem struct {
	PK      string `dynamodbav:"pk"`
	Entity  string `dynamodbav:"entity"`
	OrderID string `dynamodbav:"order_id"`
}

func toItem(o Order) orderItem {
	return orderItem{
		PK:            prefixOrder + o.ID,
		Entity:        entityOrder,
		OrderID:       o.ID,
		Title:         o.Title,
		Author:        o.Author,
		ISBN:          o.ISBN,
		Category:      string(o.Category),
		Price:         o.Price.StringFixed(2),
		PublishedDate: o.PublishedDate,
		CoverImageURL: o.CoverImageURL,
		StockQuantity: o.StockQuantity,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (it orderItem) toOrder() (Order, error) {
	price, err := decimal.NewFromString(it.Price)
	if err != nil {
		return Order{}, fmt.Errorf("parse price %q: %w", it.Price, err)
	}
	return Order{
		ID:            it.OrderID,
		Title:         it.Title,
		Author:        it.Author,
		ISBN:          it.ISBN,
		Category:      Category(it.Category),
		Price:         price,
		PublishedDate: it.PublishedDate,
		CoverImageURL: it.CoverImageURL,
		StockQuantity: it.StockQuantity,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}, nil
}

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	pageSize  int32
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		pageSize:  100,
	}
}

// Add atomically writes the order, its ISBN and title/author guards and bumps the counter for
// the order's creation day. A guard that already exists cancels the whole transaction.
func (s *Store) Add(ctx context.Context, o Order) error {
	orderMap, err := attributevalue.MarshalMap(toItem(o))
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	isbnMap, err := attributevalue.MarshalMap(guardItem{PK: prefixISBN + o.ISBN, Entity: entityGuard, OrderID: o.ID})
	if err != nil {
		return fmt.Errorf("marshal isbn guard: %w", err)
	}
	taMap, err := attributevalue.MarshalMap(guardItem{PK: prefixTitleAuthor + titleAuthorKey(o.Title, o.Author), Entity: entityGuard, OrderID: o.ID})
	if err != nil {
		return fmt.Errorf("marshal title/author guard: %w", err)
	}

	// the order of items matters: cancellation reasons are reported by index
	transactItems := []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.tableName, Item: orderMap, ConditionExpression: awsString(notExists)}},
		{Put: &types.Put{TableName: &s.tableName, Item: isbnMap, ConditionExpression: awsString(notExists)}},
		{Put: &types.Put{TableName: &s.tableName, Item: taMap, ConditionExpression: awsString(notExists)}},
		{
			Update: &types.Update{
				TableName: &s.tableName,
				Key: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{Value: prefixDaily + dayKey(o.CreatedAt)},
				},
				UpdateExpression:         awsString("SET #e = :counter ADD order_count :one"),
				ExpressionAttributeNames: map[string]string{"#e": "entity"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":counter": &types.AttributeValueMemberS{Value: entityCounter},
					":one":     &types.AttributeValueMemberN{Value: "1"},
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: transactItems})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return conflictFromReasons(tce.CancellationReasons)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func conflictFromReasons(reasons []types.CancellationReason) error {
	for i, r := range reasons {
		if r.Code == nil || *r.Code != "ConditionalCheckFailed" {
			continue
		}
		switch i {
		case 1:
			return ErrDuplicateISBN
		case 2:
			return ErrDuplicateTitleAuthor
		}
	}
	return ErrConflict
}

// Get fetches an order by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.getItem(ctx, prefixOrder+orderID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	var it orderItem
	if err := attributevalue.UnmarshalMap(out, &it); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o, err := it.toOrder()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByISBN resolves the ISBN guard and loads the order it points at.
func (s *Store) FindByISBN(ctx context.Context, isbn string) (*Order, error) {
	out, err := s.getItem(ctx, prefixISBN+NormalizeISBN(isbn))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	var g guardItem
	if err := attributevalue.UnmarshalMap(out, &g); err != nil {
		return nil, fmt.Errorf("unmarshal isbn guard: %w", err)
	}
	return s.Get(ctx, g.OrderID)
}

// ExistsByTitleAuthor reports whether the case-insensitive (title, author) pair is taken.
func (s *Store) ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error) {
	out, err := s.getItem(ctx, prefixTitleAuthor+titleAuthorKey(title, author))
	if err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

// CountCreatedOn returns the number of orders created on the UTC calendar day of day.
func (s *Store) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	out, err := s.getItem(ctx, prefixDaily+dayKey(day))
	if err != nil {
		return 0, err
	}
	n, ok := out["order_count"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	count, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse order_count %q: %w", n.Value, err)
	}
	return count, nil
}

// ListAll scans every order item, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]Order, error) {
	var (
		result   []Order
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:                 &s.tableName,
			FilterExpression:          awsString("#e = :order"),
			ExpressionAttributeNames:  map[string]string{"#e": "entity"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":order": &types.AttributeValueMemberS{Value: entityOrder}},
			ExclusiveStartKey:         startKey,
			Limit:                     &s.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var items []orderItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, it := range items {
			o, err := it.toOrder()
			if err != nil {
				return nil, err
			}
			result = append(result, o)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) getItem(ctx context.Context, pk string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pk}},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return out.Item, nil
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
