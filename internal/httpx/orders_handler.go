package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const HeaderIdempotencyKey = "Idempotency-Key"

var validate = newValidator()

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type CreateOrderRequest struct {
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=COD BANK_TRANSFER MIDTRANS"`
	CartItemIDs   []int64 `json:"cartItemIds" validate:"required,min=1,dive,gt=0"`
}

type CreateOrderResponse struct {
	OrderID    string `json:"orderId"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

// CreateOrderHandler handles POST /orders/create. A repeated Idempotency-Key
// returns the order created by the first request.
func CreateOrderHandler(log *slog.Logger, svc OrderService, idem Idempotency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "httpx.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeValidation(w, err)
			return
		}

		key := r.Header.Get(HeaderIdempotencyKey)
		claimed := false
		if key != "" && idem != nil {
			existing, ok, err := idem.ClaimIdempotency(r.Context(), p.UserID, key)
			switch {
			case err != nil:
				logger.Warn("idempotency unavailable", slog.Any("error", err))
			case !ok && existing != "":
				writeJSON(w, http.StatusOK, CreateOrderResponse{OrderID: existing, Idempotent: true})
				return
			case !ok:
				writeJSON(w, http.StatusConflict, ErrorResponse{Error: "request with this idempotency key is in progress"})
				return
			default:
				claimed = true
			}
		}

		orderID, err := svc.Checkout(r.Context(), orders.CheckoutRequest{
			UserID:        p.UserID,
			PaymentMethod: orders.PaymentMethod(req.PaymentMethod),
			CartLineIDs:   req.CartItemIDs,
		})
		if err != nil {
			if claimed {
				if rerr := idem.ReleaseIdempotency(r.Context(), p.UserID, key); rerr != nil {
					logger.Warn("release idempotency key", slog.Any("error", rerr))
				}
			}
			writeError(w, logger, err)
			return
		}
		if claimed {
			if cerr := idem.CompleteIdempotency(r.Context(), p.UserID, key, orderID); cerr != nil {
				logger.Warn("store idempotency key", slog.Any("error", cerr))
			}
		}
		writeJSON(w, http.StatusCreated, CreateOrderResponse{OrderID: orderID})
	}
}

func ListOrdersHandler(log *slog.Logger, svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.ListOrdersHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		list, err := svc.ListOrders(r.Context(), p.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if list == nil {
			list = []orders.Order{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetOrderHandler(log *slog.Logger, svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.GetOrderHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		o, err := svc.GetOrder(r.Context(), p.UserID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

// OrderStatusHandler serves GET /orders/{id}/status from Redis when it can.
func OrderStatusHandler(log *slog.Logger, svc OrderService, cache StatusCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.OrderStatusHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		orderID := chi.URLParam(r, "id")

		if cache != nil {
			e, hit, err := cache.CachedStatus(r.Context(), orderID)
			if err != nil {
				logger.Warn("status cache read", slog.Any("error", err))
			}
			if hit && e.UserID == p.UserID {
				writeJSON(w, http.StatusOK, e)
				return
			}
		}

		o, err := svc.GetOrder(r.Context(), p.UserID, orderID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		e := redisx.StatusEntry{OrderID: o.ID, UserID: o.UserID, Status: string(o.Status), Rank: o.Status.Rank(), UpdatedAt: o.UpdatedAt}
		if cache != nil {
			stored, err := cache.CacheStatus(r.Context(), o.ID, e)
			switch {
			case err != nil:
				logger.Warn("status cache write", slog.Any("error", err))
			case !stored:
				// A transition committed after our read; its entry wins.
				if newer, hit, err := cache.CachedStatus(r.Context(), o.ID); err == nil && hit && newer.UserID == p.UserID {
					e = newer
				}
			}
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func CancelOrderHandler(log *slog.Logger, svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.CancelOrderHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		o, err := svc.CancelOrder(r.Context(), p.UserID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

type PaymentProofRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func PaymentProofHandler(log *slog.Logger, svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.PaymentProofHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req PaymentProofRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeValidation(w, err)
			return
		}
		o, err := svc.SubmitPaymentProof(r.Context(), p.UserID, chi.URLParam(r, "id"), req.URL)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func DeleteOrderHandler(log *slog.Logger, svc OrderService, cache StatusCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.DeleteOrderHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		orderID := chi.URLParam(r, "id")
		if err := svc.DeleteOrder(r.Context(), p.UserID, orderID); err != nil {
			writeError(w, logger, err)
			return
		}
		if cache != nil {
			if err := cache.DropStatus(r.Context(), orderID); err != nil {
				logger.Warn("status cache drop", slog.Any("error", err))
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
