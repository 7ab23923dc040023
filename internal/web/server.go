// Package web is the HTTP boundary of the loan prediction service: the
// applicant form, the result page, the JSON API, health and model info
// endpoints, Prometheus metrics and the live decision feed.
package web

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"loan-predictor/internal/common"
	"loan-predictor/internal/ml"
	"loan-predictor/internal/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// RequestMetrics counts rejected applicant input.
type RequestMetrics interface {
	InvalidRequestsInc(field string)
}

// LoadHistory lists recorded model load events, newest first.
type LoadHistory interface {
	RecentModelLoads(limit int) ([]storage.ModelLoadRecord, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
	// HistoryLimit caps the load events shown by /model/info.
	HistoryLimit int
}

// Server routes requests to the scorer.
type Server struct {
	scorer       *ml.Scorer
	hub          *Hub
	history      LoadHistory
	metrics      RequestMetrics
	pages        *pages
	historyLimit int
	router       *mux.Router
	server       *http.Server
}

// NewServer wires the routes. hub, history and metrics may be nil.
func NewServer(scorer *ml.Scorer, hub *Hub, history LoadHistory, metrics RequestMetrics, cfg Config) *Server {
	s := &Server{
		scorer:       scorer,
		hub:          hub,
		history:      history,
		metrics:      metrics,
		pages:        mustParsePages(),
		historyLimit: cfg.HistoryLimit,
	}
	if s.historyLimit <= 0 {
		s.historyLimit = 20
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)
	r.HandleFunc("/", s.handleForm).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredictPage).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/predict", s.handlePredictAPI).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/model/info", s.handleModelInfo).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	if hub != nil {
		r.Handle("/ws/decisions", hub).Methods(http.MethodGet)
	}
	s.router = r

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting loan prediction server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the decision feed and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Stop()
	}
	return s.server.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFrom returns the request id assigned by the middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware keeps an inbound X-Request-ID or assigns a new UUID,
// and echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(common.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Debug().
			Str("request_id", RequestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
