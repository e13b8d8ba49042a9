package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetProductSales(ctx context.Context, arg database.GetProductSalesParams) ([]database.GetProductSalesRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers outlet-scoped report endpoints.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/product-sales", h.ProductSales)
}

// --- Response types ---

type dailySalesResponse struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
}

type productSalesResponse struct {
	ProductName  string `json:"product_name"`
	QuantitySold int64  `json:"quantity_sold"`
	TotalRevenue string `json:"total_revenue"`
}

// --- Handlers ---

// DailySales handles GET /outlets/{oid}/reports/daily-sales?start&end.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	outletID, start, end, ok := parseReportParams(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		OutletID:  outletID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:         row.Date.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"daily_sales": resp})
}

// ProductSales handles GET /outlets/{oid}/reports/product-sales?start&end.
func (h *ReportsHandler) ProductSales(w http.ResponseWriter, r *http.Request) {
	outletID, start, end, ok := parseReportParams(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetProductSales(r.Context(), database.GetProductSalesParams{
		OutletID:  outletID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: product sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = productSalesResponse{
			ProductName:  row.ProductName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product_sales": resp})
}

// --- Helpers ---

// parseReportParams validates the outlet ID and the start/end date range.
// Defaults to the last 7 days when the range is absent.
func parseReportParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, time.Time, time.Time, bool) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return uuid.Nil, time.Time{}, time.Time{}, false
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return uuid.Nil, time.Time{}, time.Time{}, false
	}

	end := time.Now()
	start := end.AddDate(0, 0, -7)

	if s := r.URL.Query().Get("start"); s != "" {
		start, err = time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start format, use YYYY-MM-DD"})
			return uuid.Nil, time.Time{}, time.Time{}, false
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		end, err = time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end format, use YYYY-MM-DD"})
			return uuid.Nil, time.Time{}, time.Time{}, false
		}
	}

	if end.Before(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must not be before start"})
		return uuid.Nil, time.Time{}, time.Time{}, false
	}

	return outletID, start, end, true
}
