package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/notify"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request with its outcome and carries the
// request id into the context for outgoing events.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(notify.WithTraceID(r.Context(), reqID)))

			log.Info("request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", reqID),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
