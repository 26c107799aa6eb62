package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/notify"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
	"github.com/ariefcatur/go-restaurant-orders/internal/reservations"
)

type CatalogService interface {
	ListItems(ctx context.Context, f catalog.Filter) ([]catalog.MenuItem, error)
	GetItem(ctx context.Context, id string) (catalog.MenuItem, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	ListDietaryTags(ctx context.Context) ([]catalog.DietaryTag, error)
	ListVariationTypes(ctx context.Context) ([]catalog.VariationType, error)
	UpsertItem(ctx context.Context, item catalog.MenuItem) (catalog.MenuItem, error)
	SetAvailability(ctx context.Context, id string, available bool) (catalog.MenuItem, error)
	DeleteItem(ctx context.Context, id string) error
	UpsertCategory(ctx context.Context, c catalog.Category) error
}

type CartService interface {
	Get(ctx context.Context, session string) (cart.Cart, error)
	Add(ctx context.Context, session string, sel cart.Selection) (cart.Cart, error)
	Build(ctx context.Context, sels []cart.Selection) (cart.Cart, error)
	Remove(ctx context.Context, session string, index int) (cart.Cart, error)
	SetQuantity(ctx context.Context, session string, index, qty int) (cart.Cart, error)
	Clear(ctx context.Context, session string) error
	Quote(ctx context.Context, session string, mode pricing.FulfillmentMode, tip pricing.Tip) (cart.Quote, error)
}

type OrderService interface {
	Create(ctx context.Context, in orders.CreateInput) (orders.Order, bool, error)
	Transition(ctx context.Context, id string, req orders.TransitionRequest) (orders.Order, error)
	Get(ctx context.Context, id string) (orders.Order, error)
	Status(ctx context.Context, id string) (orders.StatusView, error)
	List(ctx context.Context, email string) ([]orders.Order, error)
}

type ReservationService interface {
	Create(ctx context.Context, in reservations.CreateInput) (reservations.Reservation, error)
	Get(ctx context.Context, id string) (reservations.Reservation, error)
	ListByEmail(ctx context.Context, email string) ([]reservations.Reservation, error)
	ListForDay(ctx context.Context, location string, day time.Time) ([]reservations.Reservation, error)
	Transition(ctx context.Context, id string, to reservations.Status) (reservations.Reservation, error)
}

type NotificationService interface {
	List(ctx context.Context, email string, limit int) ([]notify.Notification, error)
}

// HandlerTimeout bounds every request; graceful shutdown must allow at least this long.
const HandlerTimeout = 15 * time.Second

type Deps struct {
	Catalog       CatalogService
	Cart          CartService
	Orders        OrderService
	Reservations  ReservationService
	Notifications NotificationService
	Authz         *auth.Authz
	Log           *slog.Logger
	PageSize      int
	// Ready reports dependency health for /healthz; nil means always healthy.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Logging(d.Log), metrics.Middleware, middleware.Recoverer)
	r.Use(middleware.Timeout(HandlerTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	menu := &MenuHandler{Catalog: d.Catalog}
	carts := &CartHandler{Cart: d.Cart}
	ords := &OrdersHandler{Orders: d.Orders, Cart: d.Cart}
	admin := &AdminHandler{Orders: d.Orders, Catalog: d.Catalog, Reservations: d.Reservations, PageSize: d.PageSize}
	res := &ReservationsHandler{Reservations: d.Reservations}
	notes := &NotificationsHandler{Notifications: d.Notifications}

	r.Route("/api/v1", func(r chi.Router) {
		menu.Register(r)
		carts.Register(r)
		ords.Register(r)
		res.Register(r)
		notes.Register(r)
		r.Route("/admin", func(r chi.Router) {
			admin.Register(r, d.Authz)
		})
	})
	return r
}
