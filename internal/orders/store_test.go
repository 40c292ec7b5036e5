package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws/awstest"
)

const ordersTable = "orders"

func newTestStore() (*Store, *awstest.Dynamo) {
	mock := awstest.NewDynamo(map[string]string{ordersTable: "pk"})
	return NewStore(mock, ordersTable), mock
}

func sampleOrder(id, isbn, title string) Order {
	return Order{
		ID:            id,
		Title:         title,
		Author:        "Jane Doe",
		ISBN:          isbn,
		Category:      CategoryTechnical,
		Price:         decimal.RequireFromString("45.99"),
		PublishedDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CoverImageURL: "https://img.example.com/cover.png",
		StockQuantity: 15,
		CreatedAt:     time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}
}

func TestAdd_PersistsOrderGuardsAndCounter(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	o := sampleOrder("order-1", "9780134190440", "Advanced Programming Techniques")

	if err := store.Add(ctx, o); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if mock.Item(ordersTable, "ORDER#order-1") == nil {
		t.Fatalf("order item not stored")
	}
	guard := mock.Item(ordersTable, "ISBN#9780134190440")
	if guard == nil {
		t.Fatalf("isbn guard not stored")
	}
	if id, ok := guard["order_id"].(*types.AttributeValueMemberS); !ok || id.Value != "order-1" {
		t.Fatalf("isbn guard points at %+v", guard["order_id"])
	}
	if mock.Item(ordersTable, "TITLEAUTHOR#advanced programming techniques#jane doe") == nil {
		t.Fatalf("title/author guard not stored")
	}

	n, err := store.CountCreatedOn(ctx, o.CreatedAt)
	if err != nil {
		t.Fatalf("CountCreatedOn error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	o := sampleOrder("order-2", "0306406152", "Database Internals")

	if err := store.Add(ctx, o); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	got, err := store.Get(ctx, "order-2")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected order, got nil")
	}
	if !got.Price.Equal(o.Price) {
		t.Fatalf("price mismatch: %s != %s", got.Price, o.Price)
	}
	if !got.PublishedDate.Equal(o.PublishedDate) || !got.CreatedAt.Equal(o.CreatedAt) {
		t.Fatalf("timestamps mismatch: %+v", got)
	}
	if got.UpdatedAt != nil {
		t.Fatalf("expected no UpdatedAt, got %v", got.UpdatedAt)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing order, got (%v, %v)", missing, err)
	}
}

func TestAdd_DuplicateISBN(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if err := store.Add(ctx, sampleOrder("a", "9780134190440", "Clean Code")); err != nil {
		t.Fatalf("first Add error: %v", err)
	}
	err := store.Add(ctx, sampleOrder("b", "9780134190440", "Another Title"))
	if !errors.Is(err, ErrDuplicateISBN) {
		t.Fatalf("expected ErrDuplicateISBN, got %v", err)
	}
	if !IsConflict(err) {
		t.Fatalf("expected conflict classification")
	}

	n, _ := store.CountCreatedOn(ctx, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC))
	if n != 1 {
		t.Fatalf("canceled transaction must not bump the counter, got %d", n)
	}
}

func TestAdd_DuplicateTitleAuthorIsCaseInsensitive(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if err := store.Add(ctx, sampleOrder("a", "9780134190440", "Clean Code")); err != nil {
		t.Fatalf("first Add error: %v", err)
	}
	dup := sampleOrder("b", "0306406152", "CLEAN code")
	dup.Author = "jane DOE"
	if err := store.Add(ctx, dup); !errors.Is(err, ErrDuplicateTitleAuthor) {
		t.Fatalf("expected ErrDuplicateTitleAuthor, got %v", err)
	}

	exists, err := store.ExistsByTitleAuthor(ctx, "Clean Code", "Jane Doe")
	if err != nil || !exists {
		t.Fatalf("expected pair to exist, got (%v, %v)", exists, err)
	}
}

func TestFindByISBN(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Add(ctx, sampleOrder("a", "9780134190440", "Clean Code")); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	got, err := store.FindByISBN(ctx, "978-0-13-419044-0")
	if err != nil {
		t.Fatalf("FindByISBN error: %v", err)
	}
	if got == nil || got.ID != "a" {
		t.Fatalf("expected order a, got %+v", got)
	}

	none, err := store.FindByISBN(ctx, "0000000000")
	if err != nil || none != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", none, err)
	}
}

func TestListAll_PaginatesAndSkipsGuards(t *testing.T) {
	store, _ := newTestStore()
	store.pageSize = 2
	ctx := context.Background()

	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		o := sampleOrder(fmt.Sprintf("o%d", i), fmt.Sprintf("978000000000%d", i), fmt.Sprintf("Title %d", i))
		o.CreatedAt = base.Add(time.Duration(5-i) * time.Minute)
		if err := store.Add(ctx, o); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 orders, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatalf("orders not sorted by CreatedAt")
		}
	}
}

func TestStore_PropagatesClientErrors(t *testing.T) {
	store, mock := newTestStore()
	boom := errors.New("throttled")
	mock.FailOn("TransactWriteItems", boom)
	mock.FailOn("GetItem", boom)

	err := store.Add(context.Background(), sampleOrder("a", "9780134190440", "Clean Code"))
	if !errors.Is(err, boom) || IsConflict(err) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if _, err := store.CountCreatedOn(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
}
