package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators of the router. Idempotency, Statuses and Dedup
// may be nil; the routes then work without Redis.
type Deps struct {
	Orders      OrderService
	Payments    PaymentService
	Admin       AdminService
	Idempotency Idempotency
	Statuses    StatusCache
	Dedup       Deduper

	JWTSecret         string
	CookieName        string
	MidtransServerKey string
	RequestTimeout    time.Duration
}

func NewRouter(log *slog.Logger, d Deps) *chi.Mux {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	if d.CookieName == "" {
		d.CookieName = "token"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// the gateway authenticates with the payload signature, not a JWT
	r.Post("/payments/notify", PaymentNotifyHandler(log, d.Payments, d.MidtransServerKey, d.Dedup))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.JWTSecret, d.CookieName))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/create", CreateOrderHandler(log, d.Orders, d.Idempotency))
			r.Get("/", ListOrdersHandler(log, d.Orders))
			r.Get("/{id}", GetOrderHandler(log, d.Orders))
			r.Get("/{id}/status", OrderStatusHandler(log, d.Orders, d.Statuses))
			r.Put("/{id}/cancel", CancelOrderHandler(log, d.Orders))
			r.Put("/{id}/payment-proof", PaymentProofHandler(log, d.Orders))
			r.Delete("/{id}", DeleteOrderHandler(log, d.Orders, d.Statuses))
		})
		r.Post("/payments/create", CreatePaymentHandler(log, d.Payments))

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/orders", AdminListOrdersHandler(log, d.Admin))
			r.Put("/orders/{id}/status", UpdateStatusHandler(log, d.Admin))
			r.Put("/orders/{id}/approve-payment", ApprovePaymentHandler(log, d.Admin))
		})
	})
	return r
}
