package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/payment"
)

const webhookDedupScope = "webhook"

type CreatePaymentRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

func CreatePaymentHandler(log *slog.Logger, svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "httpx.CreatePaymentHandler"))
		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req CreatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeValidation(w, err)
			return
		}
		sess, err := svc.CreatePaymentSession(r.Context(), p.UserID, req.OrderID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

type ackResponse struct {
	Status string `json:"status"`
}

// PaymentNotifyHandler is the gateway webhook. Once the body parses and the
// signature matches, the answer is 200 whatever the outcome, so the gateway
// stops retrying.
func PaymentNotifyHandler(log *slog.Logger, svc PaymentService, serverKey string, dedup Deduper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "httpx.PaymentNotifyHandler"
		logger := log.With(slog.String("op", op))

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
			return
		}
		n, rawGross, err := payment.DecodeNotification(body)
		if errors.Is(err, payment.ErrIncompleteNotification) {
			logger.Warn("incomplete notification acknowledged", slog.Any("error", err))
			writeJSON(w, http.StatusOK, ackResponse{Status: "ignored"})
			return
		}
		if err != nil {
			logger.Warn("undecodable notification", slog.Any("error", err))
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid notification"})
			return
		}
		logger = logger.With(
			slog.String("reference", n.Reference),
			slog.String("transaction_id", n.TransactionID),
			slog.String("outcome", string(n.Outcome)),
		)
		if serverKey == "" {
			logger.Warn("notification rejected: gateway not configured")
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "invalid signature"})
			return
		}
		if err := n.Verify(rawGross, serverKey); err != nil {
			logger.Warn("notification rejected", slog.Any("error", err))
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "invalid signature"})
			return
		}

		dedupID := n.TransactionID + ":" + string(n.Outcome) + ":" + string(n.Risk)
		if dedup != nil && n.TransactionID != "" {
			first, err := dedup.FirstSeen(r.Context(), webhookDedupScope, dedupID)
			if err != nil {
				logger.Warn("webhook dedup unavailable", slog.Any("error", err))
			} else if !first {
				logger.Info("duplicate notification acknowledged")
				writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate"})
				return
			}
		}

		changed, err := svc.Reconcile(r.Context(), n)
		if err != nil {
			if !acknowledgeable(err) {
				logger.Error("reconcile failed", slog.Any("error", err))
				if dedup != nil && n.TransactionID != "" {
					if ferr := dedup.Forget(r.Context(), webhookDedupScope, dedupID); ferr != nil {
						logger.Warn("forget dedup key", slog.Any("error", ferr))
					}
				}
			}
			writeJSON(w, http.StatusOK, ackResponse{Status: "ignored"})
			return
		}
		if changed {
			writeJSON(w, http.StatusOK, ackResponse{Status: "updated"})
			return
		}
		writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
	}
}

// acknowledgeable errors describe the notification itself; retrying would not help.
func acknowledgeable(err error) bool {
	return errors.Is(err, payment.ErrMalformedReference) ||
		errors.Is(err, orders.ErrOrderNotFound) ||
		errors.Is(err, orders.ErrInvalidTransition) ||
		errors.Is(err, orders.ErrAmountMismatch)
}
