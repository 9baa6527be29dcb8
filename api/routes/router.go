package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amertacoffee/amerta-backend/api/controllers"
	"github.com/amertacoffee/amerta-backend/api/middleware"
	authsvc "github.com/amertacoffee/amerta-backend/internal/auth"
	cartsvc "github.com/amertacoffee/amerta-backend/internal/cart"
	checkoutsvc "github.com/amertacoffee/amerta-backend/internal/checkout"
	"github.com/amertacoffee/amerta-backend/internal/orders"
	productsvc "github.com/amertacoffee/amerta-backend/internal/products"
	"github.com/amertacoffee/amerta-backend/pkg/auth/session"
	"github.com/amertacoffee/amerta-backend/pkg/config"
	"github.com/amertacoffee/amerta-backend/pkg/db"
	"github.com/amertacoffee/amerta-backend/pkg/enums"
	"github.com/amertacoffee/amerta-backend/pkg/logger"
	"github.com/amertacoffee/amerta-backend/pkg/metrics"
)

type cachePinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Cache           cachePinger
	SessionChecker  session.AccessSessionChecker
	AuthService     authsvc.Service
	ProductService  productsvc.Service
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsHandler  http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Cache, logg))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(deps.ProductService, logg))
		r.Get("/{slug}", controllers.ProductGet(deps.ProductService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

		r.Get("/me", controllers.AuthMe(deps.AuthService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Put("/items/{itemID}", controllers.CartUpdateItem(deps.CartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.CartService, logg))
		})

		r.Post("/checkout", controllers.CheckoutExecute(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.OrdersService, logg))
			r.Get("/{orderID}", controllers.OrderGet(deps.OrdersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(deps.ProductService, logg))
			r.Patch("/{productID}", controllers.ProductUpdate(deps.ProductService, logg))
			r.Delete("/{productID}", controllers.ProductDelete(deps.ProductService, logg))
		})
	})

	return r
}
