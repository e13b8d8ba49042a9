package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/kitchen"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// KitchenEngine defines the engine methods needed by kitchen handlers.
// Satisfied by *kitchen.Engine; narrow interface for testability.
type KitchenEngine interface {
	ListPending(ctx context.Context, outletID uuid.UUID, day time.Time) ([]kitchen.DisplayOrder, error)
	SetStatus(ctx context.Context, outletID, orderID uuid.UUID, newStatus string) (database.Order, error)
}

// Broadcaster pushes events to connected display clients.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToOutlet(outletID uuid.UUID, event ws.Event)
}

// KitchenHandler handles kitchen display endpoints.
type KitchenHandler struct {
	engine KitchenEngine
	hub    Broadcaster
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(engine KitchenEngine, hub Broadcaster) *KitchenHandler {
	return &KitchenHandler{engine: engine, hub: hub}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/kitchen
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListPending)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type kitchenItemResponse struct {
	ProductName    string  `json:"product_name"`
	ProductNameAlt *string `json:"product_name_alt"`
	Quantity       int32   `json:"quantity"`
	Note           *string `json:"note"`
}

type kitchenOrderResponse struct {
	ID             uuid.UUID             `json:"id"`
	OrderNumber    string                `json:"order_number"`
	OrderType      string                `json:"order_type"`
	KitchenStatus  string                `json:"kitchen_status"`
	TableNumber    *string               `json:"table_number"`
	CustomerName   *string               `json:"customer_name"`
	MinutesElapsed int                   `json:"minutes_elapsed"`
	Urgency        string                `json:"urgency"`
	CreatedAt      time.Time             `json:"created_at"`
	Items          []kitchenItemResponse `json:"items"`
}

type kitchenListResponse struct {
	Orders []kitchenOrderResponse `json:"orders"`
	Date   string                 `json:"date"`
}

type kitchenStatusRequest struct {
	Status string `json:"status"`
}

// statusChangedEvent is the payload of the kitchen.status_changed push event.
type statusChangedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	KitchenStatus string    `json:"kitchen_status"`
}

// --- Handlers ---

// ListPending handles GET /outlets/{oid}/kitchen/orders?date=YYYY-MM-DD.
// Defaults to today. Orders come back oldest first so the display keeps FIFO
// prioritization.
func (h *KitchenHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	day := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		day, err = time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
	}

	orders, err := h.engine.ListPending(r.Context(), outletID, day)
	if err != nil {
		log.Printf("ERROR: list kitchen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]kitchenOrderResponse, len(orders))
	for i, d := range orders {
		resp[i] = toKitchenOrderResponse(d)
	}

	writeJSON(w, http.StatusOK, kitchenListResponse{
		Orders: resp,
		Date:   day.Format("2006-01-02"),
	})
}

// UpdateStatus handles PATCH /outlets/{oid}/kitchen/orders/{id}/status.
func (h *KitchenHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req kitchenStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.engine.SetStatus(r.Context(), outletID, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, kitchen.ErrUnknownStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, kitchen.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, pgx.ErrNoRows):
			// Either the order doesn't exist or its status changed between
			// read and write; the display should re-fetch and retry.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order not found or status changed, please retry"})
		default:
			log.Printf("ERROR: update kitchen status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	if h.hub != nil {
		payload, err := json.Marshal(statusChangedEvent{
			OrderID:       updated.ID,
			OrderNumber:   updated.OrderNumber,
			KitchenStatus: updated.KitchenStatus,
		})
		if err == nil {
			h.hub.BroadcastToOutlet(outletID, ws.Event{Type: "kitchen.status_changed", Payload: payload})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"id":             updated.ID,
		"kitchen_status": updated.KitchenStatus,
	})
}

// --- Helpers ---

func toKitchenOrderResponse(d kitchen.DisplayOrder) kitchenOrderResponse {
	o := d.Order
	resp := kitchenOrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		OrderType:      o.OrderType,
		KitchenStatus:  o.KitchenStatus,
		TableNumber:    textOrNil(o.TableNumber),
		CustomerName:   textOrNil(o.CustomerName),
		MinutesElapsed: d.MinutesElapsed,
		Urgency:        d.Urgency,
		CreatedAt:      o.CreatedAt,
	}

	resp.Items = make([]kitchenItemResponse, len(d.Items))
	for i, it := range d.Items {
		resp.Items[i] = kitchenItemResponse{
			ProductName:    it.ProductName,
			ProductNameAlt: textOrNil(it.ProductNameAlt),
			Quantity:       it.Quantity,
			Note:           textOrNil(it.Note),
		}
	}
	return resp
}
