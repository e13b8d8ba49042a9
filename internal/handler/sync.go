package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/service"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SyncHandler accepts sales captured by clients while offline. Replays carry
// the same client_ref, so a sale the server already recorded answers 200 with
// duplicate=true instead of creating a second order.
type SyncHandler struct {
	svc SaleServicer
	hub Broadcaster
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(svc SaleServicer, hub Broadcaster) *SyncHandler {
	return &SyncHandler{svc: svc, hub: hub}
}

// RegisterRoutes registers sync endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/sync
func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sales", h.SubmitSale)
}

// --- Request / Response types ---

type syncSaleRequest struct {
	ClientRef     string                   `json:"client_ref"`
	OrderType     string                   `json:"order_type"`
	TableNumber   string                   `json:"table_number"`
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	Items         []createOrderItemRequest `json:"items"`
}

type syncSaleResponse struct {
	Success     bool   `json:"success"`
	Duplicate   bool   `json:"duplicate"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

// --- Handlers ---

// SubmitSale handles POST /outlets/{oid}/sync/sales.
func (h *SyncHandler) SubmitSale(w http.ResponseWriter, r *http.Request) {
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

	var req syncSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.ClientRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_ref is required"})
		return
	}

	result, err := h.svc.CreateSale(r.Context(), service.CreateSaleRequest{
		OutletID:      outletID,
		CreatedBy:     claims.UserID,
		OrderType:     req.OrderType,
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		ClientRef:     req.ClientRef,
		Items:         toSaleItems(req.Items),
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateSale) {
			writeJSON(w, http.StatusOK, syncSaleResponse{Success: true, Duplicate: true})
			return
		}
		if isSaleValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: sync sale: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.hub != nil {
		payload, err := json.Marshal(orderCreatedEvent{
			OrderID:     result.Order.ID,
			OrderNumber: result.Order.OrderNumber,
			OrderType:   result.Order.OrderType,
		})
		if err == nil {
			h.hub.BroadcastToOutlet(outletID, ws.Event{Type: "order.created", Payload: payload})
		}
	}

	writeJSON(w, http.StatusCreated, syncSaleResponse{
		Success:     true,
		Duplicate:   false,
		OrderID:     result.Order.ID.String(),
		OrderNumber: result.Order.OrderNumber,
	})
}
