// Package server exposes the engine over HTTP. Every request is validated
// independently; nothing is shared between requests except the read-only
// engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hejijunhao/tagcheck/internal/engine"
	"github.com/hejijunhao/tagcheck/internal/engine/aggregate"
	"github.com/hejijunhao/tagcheck/internal/history"
	"github.com/hejijunhao/tagcheck/internal/logging"
	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
)

const maxBodyBytes = 8 << 20

// Option configures a Server.
type Option func(*Server)

// WithHistory serves confirmed suggestions from t.
func WithHistory(t *history.Tracker) Option {
	return func(s *Server) { s.history = t }
}

// WithMinOccurrences sets the rule-suggestion threshold for /v1/validate.
func WithMinOccurrences(n int) Option {
	return func(s *Server) { s.minOccurrences = n }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server routes HTTP requests to the engine.
type Server struct {
	router         *chi.Mux
	engine         *engine.Engine
	history        *history.Tracker
	minOccurrences int
	version        string
	log            *slog.Logger
}

// New builds the router.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		engine:         eng,
		minOccurrences: aggregate.DefaultMinOccurrences,
		log:            logging.New("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/normalize", s.handleNormalize)
		r.Post("/compare", s.handleCompare)
		r.Post("/significance", s.handleSignificance)
		r.Post("/validate", s.handleValidate)
		r.Get("/history/confirmed", s.handleConfirmed)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// --- handlers ---

type normalizeValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type normalizeRequest struct {
	Values []normalizeValue `json:"values"`
}

type normalizeResult struct {
	Name       string           `json:"name"`
	Value      any              `json:"value"`
	Normalized model.Normalized `json:"normalized"`
	Rule       string           `json:"rule"`
}

type compareRequest struct {
	Parameter string `json:"parameter"`
	Predicted any    `json:"predicted"`
	Actual    any    `json:"actual"`
}

type significanceRequest struct {
	PagePath        string             `json:"page_path"`
	EventCounts     []model.EventCount `json:"event_counts"`
	TotalEventCount int64              `json:"total_event_count"`
}

type validateRequest struct {
	Pages     []model.PageInput `json:"pages"`
	Verbosity string            `json:"verbosity"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if !decode(w, r, &req) {
		return
	}
	norm := s.engine.Classifier().Normalizer()
	results := make([]normalizeResult, 0, len(req.Values))
	for _, v := range req.Values {
		if v.Name == "" {
			writeError(w, http.StatusBadRequest, "every value needs a name")
			return
		}
		results = append(results, normalizeResult{
			Name:       v.Name,
			Value:      v.Value,
			Normalized: norm.Normalize(v.Name, v.Value),
			Rule:       norm.RuleName(v.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Parameter == "" {
		writeError(w, http.StatusBadRequest, "parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Classifier().Classify(req.Parameter, req.Predicted, req.Actual))
}

func (s *Server) handleSignificance(w http.ResponseWriter, r *http.Request) {
	var req significanceRequest
	if !decode(w, r, &req) {
		return
	}
	props := s.engine.Significance().Proportions(req.PagePath, req.EventCounts, req.TotalEventCount)
	if props == nil {
		props = []model.EventProportion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"proportions": props})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	verbosity := output.Full
	if req.Verbosity != "" {
		v, err := output.ParseVerbosity(req.Verbosity)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		verbosity = v
	}

	agg := aggregate.New(s.engine.Vocabulary(), aggregate.WithMinOccurrences(s.minOccurrences))
	for _, page := range req.Pages {
		for _, res := range s.engine.ValidatePage(page) {
			agg.Add(res)
		}
	}
	report := agg.Report()
	report.Coverage = s.engine.Coverage(req.Pages)
	writeJSON(w, http.StatusOK, output.FormatReport(report, verbosity))
}

func (s *Server) handleConfirmed(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is not configured")
		return
	}
	updates, err := s.history.Confirmed(r.Context())
	if err != nil {
		s.log.Error("load history", "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if updates == nil {
		updates = []history.Update{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confirm_after": s.history.ConfirmAfter(),
		"updates":       updates,
	})
}

// decode reads a JSON body, keeping numbers as json.Number so raw values
// reach the normalizer unchanged. It writes the error response itself.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
