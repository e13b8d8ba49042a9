package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockSaleStore implements SaleStore with configurable behavior.
type mockSaleStore struct {
	getNextOrderNumberFn func(ctx context.Context, outletID uuid.UUID) (int32, error)
	getProductFn         func(ctx context.Context, arg database.GetProductParams) (database.Product, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn    func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

func (m *mockSaleStore) GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error) {
	return m.getNextOrderNumberFn(ctx, outletID)
}
func (m *mockSaleStore) GetProduct(ctx context.Context, arg database.GetProductParams) (database.Product, error) {
	return m.getProductFn(ctx, arg)
}
func (m *mockSaleStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockSaleStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestService(store *mockSaleStore) (*SaleService, *mockTx) {
	tx := &mockTx{}
	svc := NewSaleService(&mockTxBeginner{tx: tx}, func(db database.DBTX) SaleStore {
		return store
	})
	return svc, tx
}

func defaultStore() *mockSaleStore {
	return &mockSaleStore{
		getNextOrderNumberFn: func(ctx context.Context, outletID uuid.UUID) (int32, error) {
			return 7, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:            uuid.New(),
				OutletID:      arg.OutletID,
				OrderSeq:      arg.OrderSeq,
				OrderNumber:   arg.OrderNumber,
				OrderType:     arg.OrderType,
				KitchenStatus: enum.KitchenStatusPending,
				Subtotal:      arg.Subtotal,
				TotalAmount:   arg.TotalAmount,
				ClientRef:     arg.ClientRef,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:          uuid.New(),
				OrderID:     arg.OrderID,
				ProductName: arg.ProductName,
				Quantity:    arg.Quantity,
				UnitPrice:   arg.UnitPrice,
				Subtotal:    arg.Subtotal,
				Position:    arg.Position,
			}, nil
		},
	}
}

// --- Tests ---

func TestCreateSaleComputesTotals(t *testing.T) {
	store := defaultStore()
	productID := uuid.New()
	store.getProductFn = func(ctx context.Context, arg database.GetProductParams) (database.Product, error) {
		return database.Product{
			ID:       arg.ID,
			OutletID: arg.OutletID,
			Name:     "Nasi Goreng",
			Price:    makeNumeric("25000.00"),
			IsActive: true,
		}, nil
	}

	svc, tx := newTestService(store)
	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OutletID:  uuid.New(),
		CreatedBy: uuid.New(),
		OrderType: enum.OrderTypeDineIn,
		Items: []CreateSaleItemRequest{
			{ProductID: productID.String(), Quantity: 2},
			{ProductName: "Es Teh", UnitPrice: "5000", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	// 25000*2 + 5000*3 = 65000
	if !numericEquals(result.Order.TotalAmount, "65000") {
		t.Errorf("total: got %v, want 65000", result.Order.TotalAmount)
	}
	if result.Order.OrderNumber != "DPR-007" {
		t.Errorf("order number: got %s, want DPR-007", result.Order.OrderNumber)
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(result.Items))
	}
	if result.Items[0].ProductName != "Nasi Goreng" {
		t.Errorf("item[0] name snapshot: got %s", result.Items[0].ProductName)
	}
	if result.Items[0].Position != 0 || result.Items[1].Position != 1 {
		t.Errorf("item positions not sequential: %d, %d", result.Items[0].Position, result.Items[1].Position)
	}
	if tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", tx.commits)
	}
}

func TestCreateSaleValidation(t *testing.T) {
	outletID := uuid.New()
	testCases := []struct {
		name    string
		req     CreateSaleRequest
		wantErr error
	}{
		{
			name:    "empty items",
			req:     CreateSaleRequest{OutletID: outletID, OrderType: enum.OrderTypeDineIn},
			wantErr: ErrEmptyItems,
		},
		{
			name: "bad order type",
			req: CreateSaleRequest{OutletID: outletID, OrderType: "drive_thru",
				Items: []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "1", Quantity: 1}}},
			wantErr: ErrInvalidOrderType,
		},
		{
			name: "delivery without contact",
			req: CreateSaleRequest{OutletID: outletID, OrderType: enum.OrderTypeDelivery,
				Items: []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "1", Quantity: 1}}},
			wantErr: ErrDeliveryContact,
		},
		{
			name: "zero quantity",
			req: CreateSaleRequest{OutletID: outletID, OrderType: enum.OrderTypeDineIn,
				Items: []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "1", Quantity: 0}}},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "missing name and product id",
			req: CreateSaleRequest{OutletID: outletID, OrderType: enum.OrderTypeDineIn,
				Items: []CreateSaleItemRequest{{UnitPrice: "1", Quantity: 1}}},
			wantErr: ErrMissingProductName,
		},
		{
			name: "bad unit price",
			req: CreateSaleRequest{OutletID: outletID, OrderType: enum.OrderTypeDineIn,
				Items: []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "abc", Quantity: 1}}},
			wantErr: ErrInvalidUnitPrice,
		},
		{
			name: "bad client ref",
			req: CreateSaleRequest{OutletID: outletID, OrderType: enum.OrderTypeDineIn, ClientRef: "not-a-uuid",
				Items: []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "1", Quantity: 1}}},
			wantErr: ErrInvalidClientRef,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(defaultStore())
			_, err := svc.CreateSale(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateSaleProductNotFound(t *testing.T) {
	store := defaultStore()
	store.getProductFn = func(ctx context.Context, arg database.GetProductParams) (database.Product, error) {
		return database.Product{}, pgx.ErrNoRows
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OutletID:  uuid.New(),
		OrderType: enum.OrderTypeDineIn,
		Items:     []CreateSaleItemRequest{{ProductID: uuid.New().String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("got %v, want ErrProductNotFound", err)
	}
}

func TestCreateSaleRetriesOrderSeqConflict(t *testing.T) {
	store := defaultStore()
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		if attempts == 1 {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_outlet_id_order_seq_key"}
		}
		return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber}, nil
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OutletID:  uuid.New(),
		OrderType: enum.OrderTypeTakeaway,
		Items:     []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "1000", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts: got %d, want 2", attempts)
	}
	if result == nil {
		t.Fatal("nil result after retry")
	}
}

func TestCreateSaleDuplicateClientRef(t *testing.T) {
	store := defaultStore()
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_client_ref_key"}
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		OutletID:  uuid.New(),
		OrderType: enum.OrderTypeDineIn,
		ClientRef: uuid.New().String(),
		Items:     []CreateSaleItemRequest{{ProductName: "A", UnitPrice: "1000", Quantity: 1}},
	})
	if !errors.Is(err, ErrDuplicateSale) {
		t.Fatalf("got %v, want ErrDuplicateSale", err)
	}
}
