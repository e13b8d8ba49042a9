package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Outlet struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	OutletID       uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
}

type Product struct {
	ID        uuid.UUID
	OutletID  uuid.UUID
	Name      string
	NameAlt   pgtype.Text
	Price     pgtype.Numeric
	IsActive  bool
	CreatedAt time.Time
}

type Order struct {
	ID            uuid.UUID
	OutletID      uuid.UUID
	OrderSeq      int32
	OrderNumber   string
	OrderType     string
	KitchenStatus string
	TableNumber   pgtype.Text
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	Subtotal      pgtype.Numeric
	TotalAmount   pgtype.Numeric
	ClientRef     pgtype.UUID
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID             uuid.UUID
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
