package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the sale service.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidOrderType   = errors.New("invalid order_type")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrProductNotFound    = errors.New("product not found in outlet")
	ErrInvalidProductID   = errors.New("invalid product_id")
	ErrInvalidUnitPrice   = errors.New("invalid unit_price")
	ErrMissingProductName = errors.New("product_name is required when product_id is absent")
	ErrDeliveryContact    = errors.New("customer_name and customer_phone are required for delivery orders")
	ErrInvalidClientRef   = errors.New("invalid client_ref")
	ErrDuplicateSale      = errors.New("sale already recorded for this client_ref")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SaleStore defines the DB methods needed to record sales.
// Satisfied by *database.Queries (and its WithTx variant).
type SaleStore interface {
	GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error)
	GetProduct(ctx context.Context, arg database.GetProductParams) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewSaleStore creates a SaleStore from a DBTX (pool or tx).
type NewSaleStore func(db database.DBTX) SaleStore

// CreateSaleRequest is the validated input for recording a sale.
// ClientRef is the caller-generated idempotency key: offline clients send the
// same ref on every replay and the unique constraint turns duplicates into
// ErrDuplicateSale instead of a second order.
type CreateSaleRequest struct {
	OutletID      uuid.UUID
	CreatedBy     uuid.UUID
	OrderType     string
	TableNumber   string
	CustomerName  string
	CustomerPhone string
	ClientRef     string
	Items         []CreateSaleItemRequest
}

// CreateSaleItemRequest is a single line of the sale. Either ProductID
// references a catalog product (name and price snapshot from the DB) or the
// line carries its own ProductName and UnitPrice, as offline clients do.
type CreateSaleItemRequest struct {
	ProductID   string
	ProductName string
	UnitPrice   string
	Quantity    int32
	Note        string
}

// CreateSaleResult is the recorded order with its items.
type CreateSaleResult struct {
	Order database.Order
	Items []database.OrderItem
}

// SaleService records finalized sales.
type SaleService struct {
	pool     TxBeginner
	newStore NewSaleStore
}

func NewSaleService(pool TxBeginner, newStore NewSaleStore) *SaleService {
	return &SaleService{pool: pool, newStore: newStore}
}

// processedLine holds a prepared order item insert.
type processedLine struct {
	params database.CreateOrderItemParams
}

// CreateSale validates, prices, and records a sale atomically. Retries up to
// maxOrderNumberRetries times on order_seq unique constraint violations
// (concurrent transactions reading the same MAX).
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	if req.OrderType == enum.OrderTypeDelivery {
		if req.CustomerName == "" || req.CustomerPhone == "" {
			return nil, ErrDeliveryContact
		}
	}

	clientRef := pgtype.UUID{}
	if req.ClientRef != "" {
		ref, err := uuid.Parse(req.ClientRef)
		if err != nil {
			return nil, ErrInvalidClientRef
		}
		clientRef = pgtype.UUID{Bytes: ref, Valid: true}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createSaleTx(ctx, req, clientRef)
		if err == nil {
			return result, nil
		}
		if isClientRefConflict(err) {
			return nil, ErrDuplicateSale
		}
		if isOrderSeqConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderSeqConflict checks for a unique constraint violation on the
// per-outlet order sequence (pgconn error code 23505).
func isOrderSeqConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_outlet_id_order_seq_key"
	}
	return false
}

// isClientRefConflict checks for a replayed idempotency key.
func isClientRefConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_client_ref_key"
	}
	return false
}

// createSaleTx executes the full sale recording in a single transaction.
func (s *SaleService) createSaleTx(ctx context.Context, req CreateSaleRequest, clientRef pgtype.UUID) (*CreateSaleResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextSeq, err := store.GetNextOrderNumber(ctx, req.OutletID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("DPR-%03d", nextSeq)

	// --- Process lines: resolve products + price ---
	subtotal := decimal.Zero
	var lines []processedLine

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}

		productID := pgtype.UUID{}
		productName := item.ProductName
		productNameAlt := pgtype.Text{}
		var unitPrice decimal.Decimal

		if item.ProductID != "" {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
			}
			product, err := store.GetProduct(ctx, database.GetProductParams{
				ID:       pid,
				OutletID: req.OutletID,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
				}
				return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
			}
			productID = pgtype.UUID{Bytes: pid, Valid: true}
			productName = product.Name
			productNameAlt = product.NameAlt
			unitPrice = numericToDecimal(product.Price)
		} else {
			if productName == "" {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMissingProductName)
			}
			unitPrice, err = decimal.NewFromString(item.UnitPrice)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidUnitPrice)
			}
		}

		lineSubtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineSubtotal)

		note := pgtype.Text{}
		if item.Note != "" {
			note = pgtype.Text{String: item.Note, Valid: true}
		}

		lines = append(lines, processedLine{
			params: database.CreateOrderItemParams{
				ProductID:      productID,
				ProductName:    productName,
				ProductNameAlt: productNameAlt,
				Quantity:       item.Quantity,
				UnitPrice:      decimalToNumeric(unitPrice),
				Subtotal:       decimalToNumeric(lineSubtotal),
				Note:           note,
				Position:       int32(len(lines)),
			},
		})
	}

	tableNumber := pgtype.Text{}
	if req.TableNumber != "" {
		tableNumber = pgtype.Text{String: req.TableNumber, Valid: true}
	}
	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}
	customerPhone := pgtype.Text{}
	if req.CustomerPhone != "" {
		customerPhone = pgtype.Text{String: req.CustomerPhone, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OutletID:      req.OutletID,
		OrderSeq:      nextSeq,
		OrderNumber:   orderNumber,
		OrderType:     req.OrderType,
		TableNumber:   tableNumber,
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		Subtotal:      decimalToNumeric(subtotal),
		TotalAmount:   decimalToNumeric(subtotal),
		ClientRef:     clientRef,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for _, line := range lines {
		line.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, line.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateSaleResult{Order: order, Items: items}, nil
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeDelivery:
		return nil
	}
	return ErrInvalidOrderType
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
