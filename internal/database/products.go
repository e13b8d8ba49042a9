package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, outlet_id, name, name_alt, price, is_active, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OutletID, &p.Name, &p.NameAlt, &p.Price, &p.IsActive, &p.CreatedAt)
	return p, err
}

func (q *Queries) ListProductsByOutlet(ctx context.Context, outletID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE outlet_id = $1 AND is_active ORDER BY name ASC`,
		outletID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type GetProductParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetProduct(ctx context.Context, arg GetProductParams) (Product, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND outlet_id = $2 AND is_active`,
		arg.ID, arg.OutletID,
	)
	return scanProduct(row)
}

type CreateProductParams struct {
	OutletID uuid.UUID
	Name     string
	NameAlt  pgtype.Text
	Price    pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (outlet_id, name, name_alt, price)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		arg.OutletID, arg.Name, arg.NameAlt, arg.Price,
	)
	return scanProduct(row)
}

type DeactivateProductParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) DeactivateProduct(ctx context.Context, arg DeactivateProductParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE products SET is_active = false WHERE id = $1 AND outlet_id = $2 AND is_active RETURNING id`,
		arg.ID, arg.OutletID,
	).Scan(&id)
	return id, err
}
