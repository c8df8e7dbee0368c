package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	sse "github.com/likerRr/sse-express"
	"github.com/likerRr/sse-express/internal/chat"
)

func newRouter(cfg Config, log logrus.FieldLogger, reg *prometheus.Registry) (http.Handler, error) {
	metrics := sse.NewMetrics("chat")
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	h := chat.NewHandler(
		chat.NewHub(log, cfg.ClientQueue),
		chat.NewHistory(cfg.HistoryTTL, cfg.HistoryTTL),
		log,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))

	r.With(sse.Middleware(
		sse.WithHeartbeat(cfg.Heartbeat),
		sse.WithRetry(cfg.Retry),
		sse.WithLogger(log),
		sse.WithMetrics(metrics),
	)).Get("/updates", h.Updates)
	r.Post("/sendMessage", h.SendMessage)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r, nil
}
