// Package api provides the HTTP REST API server for cfpattern.
//
// It exposes endpoints for classifying cash-flow tables, rendering charts
// and reports, and a WebSocket stream of finished analyses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/seenimoa/cfpattern/internal/analyzer"
	"github.com/seenimoa/cfpattern/internal/cashflow"
	"github.com/seenimoa/cfpattern/internal/config"
	"github.com/seenimoa/cfpattern/internal/datasource"
	"github.com/seenimoa/cfpattern/internal/logger"
	"github.com/seenimoa/cfpattern/internal/report"
	"github.com/seenimoa/cfpattern/pkg/models"
	"github.com/seenimoa/cfpattern/pkg/utils"
)

// Version is reported by the health endpoint. Set by the CLI at startup.
var Version = "dev"

// maxBatchTargets bounds POST /api/v1/analyze/batch.
const maxBatchTargets = 50

// rowsSource names tables posted to /api/v1/analyze/rows.
const rowsSource = "request"

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	analyzer *analyzer.Analyzer
	wsHub    *WSHub
	log      zerolog.Logger
}

// NewServer creates a configured API server with all routes and middleware.
// The analyzer's observer is replaced so that every finished analysis is
// broadcast to WebSocket clients.
func NewServer(cfg *config.Config, an *analyzer.Analyzer, log zerolog.Logger) *Server {
	srv := &Server{
		cfg:      cfg,
		analyzer: an,
		wsHub:    NewWSHub(),
		log:      log,
	}
	an.SetObserver(srv.broadcastResult)
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.wsHub.Stop()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Analysis
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/batch", s.handleAnalyzeBatch)
		r.Post("/analyze/rows", s.handleAnalyzeRows)

		// Rendering
		r.Get("/chart", s.handleChart)
		r.Get("/report", s.handleReport)

		// Classifier
		r.Post("/classify", s.handleClassify)
		r.Get("/categories", s.handleCategories)

		// Configuration (read-only)
		r.Get("/config", s.handleGetConfig)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// requestLogger logs one line per request with zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(logger.WithContext(r.Context(), reqLog))
		defer func() {
			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Target string `json:"target"` // page URL or EDINET code
}

// BatchRequest is the body for POST /api/v1/analyze/batch.
type BatchRequest struct {
	Targets []string `json:"targets"`
}

// BatchItem is one per-target entry of a batch response.
type BatchItem struct {
	Target   string           `json:"target"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
	Status   int              `json:"status"`
}

// RowsRequest is the body for POST /api/v1/analyze/rows.
type RowsRequest struct {
	Rows        []models.RawRow `json:"rows"`
	ParsePolicy string          `json:"parse_policy,omitempty"`
}

// ClassifyRequest is the body for POST /api/v1/classify.
type ClassifyRequest struct {
	OperatingCF *int64 `json:"operating_cf"`
	InvestingCF *int64 `json:"investing_cf"`
	FinancingCF *int64 `json:"financing_cf"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    Version,
			"time_jst":   utils.FormatDateTimeJST(utils.NowJST()),
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := utils.NormalizeTarget(req.Target)
	if target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, target)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
	})
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targets := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		if t = utils.NormalizeTarget(t); t != "" {
			targets = append(targets, t)
		}
	}
	switch {
	case len(targets) == 0:
		writeError(w, http.StatusBadRequest, "targets is required")
		return
	case len(targets) > maxBatchTargets:
		writeError(w, http.StatusBadRequest, "too many targets")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	results, err := s.analyzer.AnalyzeMany(ctx, targets)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}

	items := make([]BatchItem, len(results))
	for i, res := range results {
		items[i] = BatchItem{Target: res.Target, Analysis: res.Analysis, Status: http.StatusOK}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			items[i].Status = statusFor(res.Err)
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    items,
	})
}

func (s *Server) handleAnalyzeRows(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	policy, err := cashflow.ParsePolicyFromString(req.ParsePolicy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An empty parse_policy keeps the analyzer's configured policy.
	opts := cashflow.ExtractOptions{}
	if req.ParsePolicy != "" {
		opts.ParsePolicy = policy
	}
	table := &models.Table{Source: rowsSource, Rows: req.Rows}
	result, err := s.analyzer.AnalyzeTableWith(table, opts)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	result, locale, ok := s.analyzeQuery(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.CashFlowChart(result, locale)))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result, locale, ok := s.analyzeQuery(w, r)
	if !ok {
		return
	}
	page, err := report.HTML(result, locale)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("rendering HTML report")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

// analyzeQuery runs an analysis for the ?target= and ?locale= query
// parameters, writing an error response when it fails.
func (s *Server) analyzeQuery(w http.ResponseWriter, r *http.Request) (*models.Analysis, string, bool) {
	target := utils.NormalizeTarget(r.URL.Query().Get("target"))
	if target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return nil, "", false
	}
	locale := s.locale(r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, target)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Debug().Err(err).Str("target", target).Msg("render request failed")
		writeError(w, statusFor(err), err.Error())
		return nil, "", false
	}
	return result, locale, true
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OperatingCF == nil || req.InvestingCF == nil || req.FinancingCF == nil {
		writeError(w, http.StatusBadRequest, "operating_cf, investing_cf and financing_cf are required")
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    cashflow.Classify(*req.OperatingCF, *req.InvestingCF, *req.FinancingCF),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    cashflow.Categories(),
	})
}

// handleGetConfig returns the running configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.cfg,
	})
}

// locale picks the ?locale= parameter, falling back to the configured one.
func (s *Server) locale(r *http.Request) string {
	l := strings.ToLower(r.URL.Query().Get("locale"))
	if l == "ja" || l == "en" {
		return l
	}
	if s.cfg.Analysis.Locale != "" {
		return s.cfg.Analysis.Locale
	}
	return "ja"
}

// broadcastResult is installed as the analyzer's observer.
func (s *Server) broadcastResult(target string, a *models.Analysis, err error) {
	if err != nil {
		s.wsHub.Broadcast(WSMessage{
			Type: "analysis_failed",
			Data: map[string]interface{}{
				"target": target,
				"error":  err.Error(),
			},
		})
		return
	}

	data := map[string]interface{}{
		"target": target,
		"run_id": a.RunID,
	}
	if latest, ok := a.LatestEntry(); ok {
		data["period"] = latest.Record.Period
		data["category"] = latest.Classification.Category
	}
	s.wsHub.Broadcast(WSMessage{Type: "analysis_complete", Data: data})
}

// statusFor maps analysis errors to HTTP status codes.
func statusFor(err error) int {
	var (
		httpErr  *datasource.ErrHTTP
		parseErr *cashflow.ParseError
	)
	switch {
	case errors.Is(err, datasource.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, datasource.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, cashflow.ErrEmptyResult), errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &httpErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	direct     chan directMessage
	quit       chan struct{}
}

// directMessage is a reply addressed to one client.
type directMessage struct {
	client *WSClient
	msg    WSMessage
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		direct:     make(chan directMessage, 64),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub event loop. It returns after Stop. Run is the only
// goroutine that sends on or closes a client's send channel.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case d := <-h.direct:
			h.mu.RLock()
			if _, ok := h.clients[d.client]; ok {
				select {
				case d.client.send <- d.msg:
				default:
				}
			}
			h.mu.RUnlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// Send queues msg for a single client. It is dropped if the client has
// already been disconnected or the hub is stopped.
func (h *WSHub) Send(client *WSClient, msg WSMessage) {
	select {
	case h.direct <- directMessage{client: client, msg: msg}:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Stop ends the event loop and disconnects every client.
func (h *WSHub) Stop() {
	close(h.quit)
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}
