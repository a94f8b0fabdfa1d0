package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/digest-service/internal/delivery/http/handler"
	"github.com/user/digest-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.Handle("POST /api/digest", middleware.RequireAPIKey(apiKey, http.HandlerFunc(h.HandleRunDigest)))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
