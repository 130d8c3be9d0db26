package http

import (
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/DRSN-tech/market-crawler/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

// Init регистрирует служебные маршруты воркера: проверку готовности и метрики.
func (r *Router) Init(checks ...HealthCheck) {
	r.router.Use(middleware.Recoverer)
	r.router.Use(metricsMiddleware)

	health := NewHealthHandler(r.logger, checks...)
	r.router.Get("/healthz", health.liveness)
	r.router.Get("/readyz", health.readiness)
	r.router.Handle("/metrics", metrics.Handler())
}
