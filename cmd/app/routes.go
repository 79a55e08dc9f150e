package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rateservice/internal/api"
	"rateservice/internal/api/middleware"
	"rateservice/internal/config"
)

func (app *App) initHTTP() {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(app.logger))
	r.Use(middleware.MetricsMiddleware(app.metrics))
	r.Use(chimiddleware.Recoverer)

	var enqueuer api.RefreshEnqueuer
	if app.enqueuer != nil {
		enqueuer = app.enqueuer
	}

	r.Get("/rates", api.HandleGetAllRates(app.resolver, app.registry))
	r.Get("/rates/{from}", api.HandleGetRate(app.resolver))
	r.Post("/rates/refresh", api.HandleRefresh(app.coordinator, enqueuer))
	r.Get("/currencies", api.HandleListCurrencies(app.registry))
	r.Get("/healthz", api.HandleHealthz())
	r.Get("/readyz", api.HandleReadyz(app.readinessChecks()...))

	if app.cfg.Server.ServeMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(app.promReg, promhttp.HandlerOpts{Registry: app.promReg}))
	}

	if app.cfg.Server.ServeSwagger {
		r.Get("/swagger/*", api.SwaggerUIHandler())
		r.Get("/openapi.json", api.OpenAPISpecHandler())
	}

	if app.asynqmon != nil {
		r.Handle(app.asynqmon.RootPath()+"/*", app.asynqmon)
	}

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		// a synchronous refresh may wait on both upstream timeouts
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (app *App) readinessChecks() []api.ReadinessCheck {
	var checks []api.ReadinessCheck
	if app.cfg.Storage.Backend == config.BackendPostgres && app.db != nil {
		checks = append(checks, api.SQLCheck("database", app.db))
	}
	if app.rdbCache != nil {
		checks = append(checks, api.RedisCheck("cache redis", app.rdbCache))
	}
	if app.rdbAsynq != nil {
		checks = append(checks, api.RedisCheck("asynq redis", app.rdbAsynq))
	}
	return checks
}
