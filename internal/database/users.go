package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, outlet_id, full_name, email, hashed_password, role, is_active, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.OutletID, &u.FullName, &u.Email, &u.HashedPassword,
		&u.Role, &u.IsActive, &u.CreatedAt,
	)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND is_active`,
		email,
	)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active`,
		id,
	)
	return scanUser(row)
}

func (q *Queries) ListUsersByOutlet(ctx context.Context, outletID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE outlet_id = $1 ORDER BY created_at ASC`,
		outletID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type CreateUserParams struct {
	OutletID       uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (outlet_id, full_name, email, hashed_password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		arg.OutletID, arg.FullName, arg.Email, arg.HashedPassword, arg.Role,
	)
	return scanUser(row)
}

type CreateOutletParams struct {
	Name string
}

func (q *Queries) CreateOutlet(ctx context.Context, arg CreateOutletParams) (Outlet, error) {
	var o Outlet
	err := q.db.QueryRow(ctx,
		`INSERT INTO outlets (name) VALUES ($1) RETURNING id, name, created_at`,
		arg.Name,
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	return o, err
}
