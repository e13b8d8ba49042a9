package kitchen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/google/uuid"
)

// Errors returned by the status engine. ErrUnknownStatus is a validation
// failure (the value is not a status at all); ErrInvalidTransition means the
// value is known but not reachable from the order's current status.
var (
	ErrUnknownStatus     = errors.New("unknown kitchen status")
	ErrInvalidTransition = errors.New("invalid kitchen status transition")
)

// transitions is the full set of legal moves. Forward progress plus one-step
// reverts so staff can correct a mis-tap without arbitrary jumps.
var transitions = map[string][]string{
	enum.KitchenStatusPending:   {enum.KitchenStatusPreparing},
	enum.KitchenStatusPreparing: {enum.KitchenStatusReady, enum.KitchenStatusPending},
	enum.KitchenStatusReady:     {enum.KitchenStatusCompleted, enum.KitchenStatusPreparing},
	enum.KitchenStatusCompleted: {},
}

// ValidStatus reports whether s is a recognized kitchen status value.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition checks the transition table. Both arguments must be valid
// status values.
func CanTransition(from, to string) error {
	allowed, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Urgency thresholds in minutes since order creation.
const (
	warningAfter = 10
	urgentAfter  = 15
)

// MinutesElapsed returns whole minutes between createdAt and now, floored at
// zero for clock skew.
func MinutesElapsed(createdAt, now time.Time) int {
	m := int(now.Sub(createdAt).Minutes())
	if m < 0 {
		return 0
	}
	return m
}

// UrgencyTier maps elapsed minutes to a display tier. Boundaries are
// exclusive: exactly 10 minutes is still normal, exactly 15 still warning.
func UrgencyTier(minutes int) string {
	switch {
	case minutes > urgentAfter:
		return enum.UrgencyUrgent
	case minutes > warningAfter:
		return enum.UrgencyWarning
	default:
		return enum.UrgencyNormal
	}
}

// Store is the database surface the engine needs. Satisfied by
// *database.Queries.
type Store interface {
	ListKitchenOrders(ctx context.Context, arg database.ListKitchenOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateKitchenStatus(ctx context.Context, arg database.UpdateKitchenStatusParams) (database.Order, error)
}

// DisplayOrder is an order annotated for the kitchen display.
type DisplayOrder struct {
	Order          database.Order
	Items          []database.OrderItem
	MinutesElapsed int
	Urgency        string
}

// Engine validates and applies status transitions and builds the kitchen
// display listing.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// ListPending returns the display-eligible orders for the given day (status
// pending or preparing, type dine_in or delivery), oldest first, each with
// its items and urgency annotation. The eligibility filter lives in the SQL;
// the annotation is derived here and never persisted.
func (e *Engine) ListPending(ctx context.Context, outletID uuid.UUID, day time.Time) ([]DisplayOrder, error) {
	orders, err := e.store.ListKitchenOrders(ctx, database.ListKitchenOrdersParams{
		OutletID: outletID,
		Day:      day,
	})
	if err != nil {
		return nil, fmt.Errorf("list kitchen orders: %w", err)
	}

	now := e.now()
	result := make([]DisplayOrder, len(orders))
	for i, o := range orders {
		items, err := e.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		minutes := MinutesElapsed(o.CreatedAt, now)
		result[i] = DisplayOrder{
			Order:          o,
			Items:          items,
			MinutesElapsed: minutes,
			Urgency:        UrgencyTier(minutes),
		}
	}
	return result, nil
}

// SetStatus applies a status transition. The update is guarded on the status
// read here, so a concurrent transition surfaces as pgx.ErrNoRows from the
// store and the caller can retry.
func (e *Engine) SetStatus(ctx context.Context, outletID, orderID uuid.UUID, newStatus string) (database.Order, error) {
	if !ValidStatus(newStatus) {
		return database.Order{}, fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}

	current, err := e.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, OutletID: outletID})
	if err != nil {
		return database.Order{}, err
	}

	if err := CanTransition(current.KitchenStatus, newStatus); err != nil {
		return database.Order{}, err
	}

	return e.store.UpdateKitchenStatus(ctx, database.UpdateKitchenStatusParams{
		ID:         orderID,
		OutletID:   outletID,
		Status:     newStatus,
		PrevStatus: current.KitchenStatus,
	})
}
