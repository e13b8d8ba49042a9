package router

import (
	"net/http"

	"github.com/dapur-pos/api/internal/config"
	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/handler"
	"github.com/dapur-pos/api/internal/kitchen"
	mw "github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/service"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, outlet scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/outlets/{oid}/kitchen", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Sale creation goes through the transactional service; each call gets a
	// store bound to the transaction's connection.
	saleService := service.NewSaleService(pool, func(db database.DBTX) service.SaleStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Outlet-scoped routes
		r.Route("/outlets/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOutlet)

			// Users (managers and owners only)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
				userHandler := handler.NewUserHandler(queries)
				r.Route("/users", userHandler.RegisterRoutes)
			})

			// Products
			productHandler := handler.NewProductHandler(queries)
			r.Route("/products", productHandler.RegisterRoutes)

			// Orders
			orderHandler := handler.NewOrderHandler(saleService, queries, hub)
			r.Route("/orders", orderHandler.RegisterRoutes)

			// Kitchen display
			kitchenHandler := handler.NewKitchenHandler(kitchen.NewEngine(queries), hub)
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)

			// Offline sale sync
			syncHandler := handler.NewSyncHandler(saleService, hub)
			r.Route("/sync", syncHandler.RegisterRoutes)

			// Reports (managers and owners only)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
				reportsHandler := handler.NewReportsHandler(queries)
				r.Route("/reports", reportsHandler.RegisterRoutes)
			})
		})
	})

	return r
}
