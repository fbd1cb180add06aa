package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/orginsights/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handler is implemented by every API surface mounted on the router
type Handler interface {
	RegisterRoutes(router *mux.Router, logger *zap.Logger)
}

// Router wires handlers, middleware and the metrics endpoint onto a mux.Router
type Router struct {
	router   *mux.Router
	logger   *zap.Logger
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewRouter(tel *telemetry.Telemetry, logger *zap.Logger, handlers []Handler) (*Router, error) {
	r := &Router{
		router: mux.NewRouter(),
		logger: logger.Named("router"),
	}

	if tel != nil {
		var err error
		r.requests, err = tel.Meter.Int64Counter("http_requests_total",
			metric.WithDescription("HTTP requests by method, route and status"))
		if err != nil {
			return nil, fmt.Errorf("failed to create request counter: %w", err)
		}
		r.latency, err = tel.Meter.Float64Histogram("http_request_duration_seconds",
			metric.WithDescription("HTTP request latency"),
			metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("failed to create latency histogram: %w", err)
		}
		r.router.Handle("/metrics", tel.Handler()).Methods(http.MethodGet)
	}

	r.router.Use(r.recoverPanics, r.observe)
	r.router.NotFoundHandler = http.HandlerFunc(notFound)

	for _, h := range handlers {
		h.RegisterRoutes(r.router, logger)
	}
	return r, nil
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// CreateServer builds the http.Server serving this router on addr
func (r *Router) CreateServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * writeTimeout,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		elapsed := time.Since(start)

		route := req.URL.Path
		if cur := mux.CurrentRoute(req); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		if r.requests != nil {
			attrs := metric.WithAttributes(
				attribute.String("method", req.Method),
				attribute.String("route", route),
				attribute.Int("status", rec.status),
			)
			r.requests.Add(req.Context(), 1, attrs)
			r.latency.Record(req.Context(), elapsed.Seconds(), attrs)
		}

		r.logger.Info("request",
			zap.String("method", req.Method),
			zap.String("route", route),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
		)
	})
}

func (r *Router) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("panic while serving request",
					zap.Any("panic", p),
					zap.String("path", req.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				writeStatus(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusNotFound, "Endpoint not found")
}

func writeStatus(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}
