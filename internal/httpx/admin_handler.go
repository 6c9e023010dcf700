package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

func AdminListOrdersHandler(log *slog.Logger, svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.AdminListOrdersHandler"))
		list, err := svc.ListAllOrders(r.Context())
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

type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"trackingNumber" validate:"max=64"`
	Courier        string `json:"courier" validate:"max=64"`
}

// UpdateStatusHandler handles PUT /admin/orders/{id}/status. Unknown status
// names are rejected by the service, not the validator, so they map to the
// same error as any other invalid status.
func UpdateStatusHandler(log *slog.Logger, svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.UpdateStatusHandler"))
		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeValidation(w, err)
			return
		}
		o, err := svc.UpdateStatus(r.Context(), orders.StatusUpdate{
			OrderID:        chi.URLParam(r, "id"),
			Status:         req.Status,
			TrackingNumber: req.TrackingNumber,
			Courier:        req.Courier,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func ApprovePaymentHandler(log *slog.Logger, svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.ApprovePaymentHandler"))
		o, err := svc.ApprovePayment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}
