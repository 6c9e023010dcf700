package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ariefcatur/holycat-orders/internal/auth"
	"github.com/ariefcatur/holycat-orders/internal/inventory"
	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/payment"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type shortageDetails struct {
	ProductID string `json:"productId"`
	Title     string `json:"title,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status. Unknown errors are
// logged and reported as 500 without their text.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		short *inventory.ShortageError
		sel   *orders.SelectionError
		tr    *orders.TransitionError
	)
	switch {
	case errors.As(err, &short):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   fmt.Sprintf("insufficient stock for %s", productLabel(short)),
			Details: shortageDetails{short.ProductID, short.Title, short.Requested, short.Available},
		})
	case errors.As(err, &tr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: tr.Error()})
	case errors.As(err, &sel):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: orders.ErrInvalidSelection.Error(), Details: map[string]any{"missingCartItemIds": sel.Missing}})
	case errors.Is(err, orders.ErrInvalidSelection):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: innermost(err)})
	case errors.Is(err, orders.ErrMissingShipmentInfo),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrInvalidPaymentMethod),
		errors.Is(err, orders.ErrPaymentNotRequired),
		errors.Is(err, inventory.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: innermost(err)})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: orders.ErrOrderNotFound.Error()})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: orders.ErrForbidden.Error()})
	case errors.Is(err, payment.ErrGateway):
		logger.Error("gateway error", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "payment gateway unavailable"})
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func productLabel(s *inventory.ShortageError) string {
	if s.Title != "" {
		return s.Title
	}
	return s.ProductID
}

// innermost drops the "pkg.Service.Method: " prefixes added on the way up.
func innermost(err error) string {
	msg := err.Error()
	for {
		i := strings.Index(msg, ": ")
		if i < 0 || !strings.Contains(msg[:i], ".Service.") {
			return msg
		}
		msg = msg[i+2:]
	}
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", fe.Field()))
		}
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: strings.Join(msgs, ", ")})
}

func principal(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		logger.Error("principal not found in context")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return p, ok
}
