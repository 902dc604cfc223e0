package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklvrr/em-metrics/internal/transport/handler"
	"go.uber.org/zap"
)

// Recovery обрабатывает паники и отвечает 500 в формате ErrorResponse
func Recovery(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				handler.WriteError(w, http.StatusInternalServerError, handler.ErrorResponse{
					Error: handler.ErrorDetail{
						Code:    "INTERNAL_ERROR",
						Message: "internal server error",
					},
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
