package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetDailySalesParams struct {
	OutletID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}

type GetDailySalesRow struct {
	Date         time.Time
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT created_at::date AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE outlet_id = $1
		  AND created_at::date BETWEEN $2::date AND $3::date
		GROUP BY day
		ORDER BY day ASC`,
		arg.OutletID, arg.StartDate, arg.EndDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.Date, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetProductSalesParams struct {
	OutletID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}

type GetProductSalesRow struct {
	ProductName  string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetProductSales(ctx context.Context, arg GetProductSalesParams) ([]GetProductSalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.product_name, COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.subtotal), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.outlet_id = $1
		  AND o.created_at::date BETWEEN $2::date AND $3::date
		GROUP BY oi.product_name
		ORDER BY SUM(oi.subtotal) DESC`,
		arg.OutletID, arg.StartDate, arg.EndDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetProductSalesRow
	for rows.Next() {
		var r GetProductSalesRow
		if err := rows.Scan(&r.ProductName, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
