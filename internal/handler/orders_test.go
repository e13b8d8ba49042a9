package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/handler"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock store ---

type mockOrderStore struct {
	orders map[uuid.UUID]database.Order
	items  map[uuid.UUID][]database.OrderItem
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders: make(map[uuid.UUID]database.Order),
		items:  make(map[uuid.UUID][]database.OrderItem),
	}
}

func (m *mockOrderStore) GetOrder(_ context.Context, arg database.GetOrderParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.OutletID != arg.OutletID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	var result []database.Order
	for _, o := range m.orders {
		if o.OutletID != arg.OutletID {
			continue
		}
		if arg.Status.Valid && o.KitchenStatus != arg.Status.String {
			continue
		}
		if arg.OrderType.Valid && o.OrderType != arg.OrderType.String {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

func setupOrderRouter(svc *mockSaleService, store *mockOrderStore, hub *mockHub) *chi.Mux {
	h := handler.NewOrderHandler(svc, store, hub)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/outlets/{oid}/orders", h.RegisterRoutes)
	return r
}

func testNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// --- Create tests ---

func TestOrderCreate_Valid(t *testing.T) {
	outletID := uuid.New()
	orderID := uuid.New()
	svc := &mockSaleService{
		createFn: func(_ context.Context, req service.CreateSaleRequest) (*service.CreateSaleResult, error) {
			if req.OrderType != enum.OrderTypeDineIn {
				t.Errorf("order_type: got %s, want %s", req.OrderType, enum.OrderTypeDineIn)
			}
			if req.CreatedBy == uuid.Nil {
				t.Error("created_by not taken from claims")
			}
			return &service.CreateSaleResult{
				Order: database.Order{
					ID:            orderID,
					OutletID:      outletID,
					OrderNumber:   "DPR-007",
					OrderType:     req.OrderType,
					KitchenStatus: enum.KitchenStatusPending,
					Subtotal:      testNumeric("61000"),
					TotalAmount:   testNumeric("61000"),
					CreatedBy:     req.CreatedBy,
					CreatedAt:     time.Now(),
					UpdatedAt:     time.Now(),
				},
				Items: []database.OrderItem{
					{ID: uuid.New(), OrderID: orderID, ProductName: "Nasi Goreng Spesial", Quantity: 2, UnitPrice: testNumeric("28000"), Subtotal: testNumeric("56000")},
					{ID: uuid.New(), OrderID: orderID, ProductName: "Es Teh Manis", Quantity: 1, UnitPrice: testNumeric("5000"), Subtotal: testNumeric("5000")},
				},
			}, nil
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, newMockOrderStore(), hub)

	rr := doAuthRequest(t, router, "POST", "/outlets/"+outletID.String()+"/orders", map[string]interface{}{
		"order_type":   enum.OrderTypeDineIn,
		"table_number": "4",
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 2},
			{"product_name": "Es Teh Manis", "unit_price": "5000", "quantity": 1},
		},
	}, testClaims(outletID))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["order_number"] != "DPR-007" {
		t.Errorf("order_number: got %v, want 'DPR-007'", resp["order_number"])
	}
	if resp["kitchen_status"] != enum.KitchenStatusPending {
		t.Errorf("kitchen_status: got %v, want %s", resp["kitchen_status"], enum.KitchenStatusPending)
	}
	if resp["total_amount"] != "61000.00" {
		t.Errorf("total_amount: got %v, want '61000.00'", resp["total_amount"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	events := hub.captured()
	if len(events) != 1 || events[0].Type != "order.created" {
		t.Fatalf("expected one order.created event, got %v", events)
	}
}

func TestOrderCreate_MissingOrderType(t *testing.T) {
	outletID := uuid.New()
	svc := &mockSaleService{
		createFn: func(_ context.Context, _ service.CreateSaleRequest) (*service.CreateSaleResult, error) {
			t.Fatal("service should not be reached")
			return nil, nil
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/outlets/"+outletID.String()+"/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"product_name": "X", "unit_price": "1000", "quantity": 1}},
	}, testClaims(outletID))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCreate_EmptyItems(t *testing.T) {
	outletID := uuid.New()
	svc := &mockSaleService{
		createFn: func(_ context.Context, _ service.CreateSaleRequest) (*service.CreateSaleResult, error) {
			t.Fatal("service should not be reached")
			return nil, nil
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/outlets/"+outletID.String()+"/orders", map[string]interface{}{
		"order_type": enum.OrderTypeDineIn,
		"items":      []map[string]interface{}{},
	}, testClaims(outletID))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCreate_ServiceValidationError(t *testing.T) {
	outletID := uuid.New()
	svc := &mockSaleService{
		createFn: func(_ context.Context, _ service.CreateSaleRequest) (*service.CreateSaleResult, error) {
			return nil, service.ErrProductNotFound
		},
	}
	hub := &mockHub{}
	router := setupOrderRouter(svc, newMockOrderStore(), hub)

	rr := doAuthRequest(t, router, "POST", "/outlets/"+outletID.String()+"/orders", map[string]interface{}{
		"order_type": enum.OrderTypeDineIn,
		"items":      []map[string]interface{}{{"product_id": uuid.New().String(), "quantity": 1}},
	}, testClaims(outletID))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if len(hub.captured()) != 0 {
		t.Error("failed create must not broadcast")
	}
}

// --- List tests ---

func TestOrderList_FiltersByStatus(t *testing.T) {
	outletID := uuid.New()
	store := newMockOrderStore()
	id1 := uuid.New()
	id2 := uuid.New()
	store.orders[id1] = database.Order{ID: id1, OutletID: outletID, OrderNumber: "DPR-001", OrderType: enum.OrderTypeDineIn, KitchenStatus: enum.KitchenStatusPending}
	store.orders[id2] = database.Order{ID: id2, OutletID: outletID, OrderNumber: "DPR-002", OrderType: enum.OrderTypeDineIn, KitchenStatus: enum.KitchenStatusCompleted}

	svc := &mockSaleService{}
	router := setupOrderRouter(svc, store, &mockHub{})

	rr := doAuthRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders?status=pending", nil, testClaims(outletID))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	o := orders[0].(map[string]interface{})
	if o["order_number"] != "DPR-001" {
		t.Errorf("order_number: got %v, want 'DPR-001'", o["order_number"])
	}
}

// --- Get tests ---

func TestOrderGet_Valid(t *testing.T) {
	outletID := uuid.New()
	store := newMockOrderStore()
	orderID := uuid.New()
	store.orders[orderID] = database.Order{
		ID: orderID, OutletID: outletID, OrderNumber: "DPR-003",
		OrderType: enum.OrderTypeDelivery, KitchenStatus: enum.KitchenStatusPreparing,
		CustomerName:  pgtype.Text{String: "Ibu Ani", Valid: true},
		CustomerPhone: pgtype.Text{String: "0811222333", Valid: true},
		Subtotal:      testNumeric("35000"), TotalAmount: testNumeric("35000"),
	}
	store.items[orderID] = []database.OrderItem{
		{ID: uuid.New(), OrderID: orderID, ProductName: "Ayam Bakar Madu", Quantity: 1, UnitPrice: testNumeric("35000"), Subtotal: testNumeric("35000")},
	}

	router := setupOrderRouter(&mockSaleService{}, store, &mockHub{})

	rr := doAuthRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders/"+orderID.String(), nil, testClaims(outletID))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["customer_name"] != "Ibu Ani" {
		t.Errorf("customer_name: got %v, want 'Ibu Ani'", resp["customer_name"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	outletID := uuid.New()
	router := setupOrderRouter(&mockSaleService{}, newMockOrderStore(), &mockHub{})

	rr := doAuthRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders/"+uuid.New().String(), nil, testClaims(outletID))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOrderGet_WrongOutlet(t *testing.T) {
	outletID := uuid.New()
	wrongOutletID := uuid.New()
	store := newMockOrderStore()
	orderID := uuid.New()
	store.orders[orderID] = database.Order{ID: orderID, OutletID: outletID, OrderNumber: "DPR-004", OrderType: enum.OrderTypeDineIn, KitchenStatus: enum.KitchenStatusPending}

	router := setupOrderRouter(&mockSaleService{}, store, &mockHub{})

	rr := doAuthRequest(t, router, "GET", "/outlets/"+wrongOutletID.String()+"/orders/"+orderID.String(), nil, testClaims(wrongOutletID))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
