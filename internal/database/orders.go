package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, outlet_id, order_seq, order_number, order_type, kitchen_status,
	table_number, customer_name, customer_phone, subtotal, total_amount, client_ref,
	created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OutletID, &o.OrderSeq, &o.OrderNumber, &o.OrderType, &o.KitchenStatus,
		&o.TableNumber, &o.CustomerName, &o.CustomerPhone, &o.Subtotal, &o.TotalAmount,
		&o.ClientRef, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetNextOrderNumber returns the next per-outlet order sequence number.
// Concurrent transactions can read the same MAX; the unique constraint on
// (outlet_id, order_seq) catches the race and the service retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_seq), 0) + 1 FROM orders WHERE outlet_id = $1`,
		outletID,
	).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	OutletID      uuid.UUID
	OrderSeq      int32
	OrderNumber   string
	OrderType     string
	TableNumber   pgtype.Text
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	Subtotal      pgtype.Numeric
	TotalAmount   pgtype.Numeric
	ClientRef     pgtype.UUID
	CreatedBy     uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (
			outlet_id, order_seq, order_number, order_type,
			table_number, customer_name, customer_phone,
			subtotal, total_amount, client_ref, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+orderColumns,
		arg.OutletID, arg.OrderSeq, arg.OrderNumber, arg.OrderType,
		arg.TableNumber, arg.CustomerName, arg.CustomerPhone,
		arg.Subtotal, arg.TotalAmount, arg.ClientRef, arg.CreatedBy,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	ProductID      pgtype.UUID
	ProductName    string
	ProductNameAlt pgtype.Text
	Quantity       int32
	UnitPrice      pgtype.Numeric
	Subtotal       pgtype.Numeric
	Note           pgtype.Text
	Position       int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (
			order_id, product_id, product_name, product_name_alt,
			quantity, unit_price, subtotal, note, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, order_id, product_id, product_name, product_name_alt,
			quantity, unit_price, subtotal, note, position`,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.ProductNameAlt,
		arg.Quantity, arg.UnitPrice, arg.Subtotal, arg.Note, arg.Position,
	).Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductNameAlt,
		&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.Note, &it.Position,
	)
	return it, err
}

type GetOrderParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND outlet_id = $2`,
		arg.ID, arg.OutletID,
	)
	return scanOrder(row)
}

type ListOrdersParams struct {
	OutletID  uuid.UUID
	Status    pgtype.Text
	OrderType pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE outlet_id = $1
		  AND ($2::text IS NULL OR kitchen_status = $2)
		  AND ($3::text IS NULL OR order_type = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at < $5 + interval '1 day')
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`,
		arg.OutletID, arg.Status, arg.OrderType, arg.StartDate, arg.EndDate,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type ListKitchenOrdersParams struct {
	OutletID uuid.UUID
	Day      time.Time
}

// ListKitchenOrders returns the orders eligible for the kitchen display:
// still in progress, of a type the kitchen prepares, created on the given
// day, oldest first.
func (q *Queries) ListKitchenOrders(ctx context.Context, arg ListKitchenOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE outlet_id = $1
		  AND kitchen_status IN ('pending', 'preparing')
		  AND order_type IN ('dine_in', 'delivery')
		  AND created_at::date = $2::date
		ORDER BY created_at ASC`,
		arg.OutletID, arg.Day,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_name_alt,
			quantity, unit_price, subtotal, note, position
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductNameAlt,
			&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.Note, &it.Position,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateKitchenStatusParams struct {
	ID         uuid.UUID
	OutletID   uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateKitchenStatus applies a status transition guarded by the previously
// observed status. pgx.ErrNoRows means the order changed between read and
// write and the caller should retry.
func (q *Queries) UpdateKitchenStatus(ctx context.Context, arg UpdateKitchenStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET kitchen_status = $3, updated_at = now()
		WHERE id = $1 AND outlet_id = $2 AND kitchen_status = $4
		RETURNING `+orderColumns,
		arg.ID, arg.OutletID, arg.Status, arg.PrevStatus,
	)
	return scanOrder(row)
}
