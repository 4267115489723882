package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/journal"
	"github.com/runningwild/tripcurve/pkg/stats"
)

const (
	defaultSteps = 100
	maxSteps     = 100000
	maxBatch     = 10000
)

// Recorder persists served classifications. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, entries ...journal.Entry) ([]journal.Entry, error)
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

type Server struct {
	model    *characteristic.Model
	recorder Recorder
	log      *slog.Logger
}

// NewServer serves queries against model. recorder may be nil.
func NewServer(model *characteristic.Model, recorder Recorder, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{model: model, recorder: recorder, log: log}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/characteristic", s.handleCharacteristic)
	r.Get("/threshold", s.handleThreshold)
	r.Get("/curve", s.handleCurve)
	r.Post("/classify", s.handleClassify)
	if s.recorder != nil {
		r.Get("/journal", s.handleJournal)
	}
	return r
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("agent listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("agent shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleCharacteristic(w http.ResponseWriter, r *http.Request) {
	cfg := s.model.Config()
	writeJSON(w, http.StatusOK, CharacteristicResponse{
		Breakpoints: s.model.Breakpoints(),
		Cutoff:      s.model.Cutoff(),
		Slope1:      cfg.Slope1,
		Slope2:      cfg.Slope2,
	})
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	ir, err := strconv.ParseFloat(r.URL.Query().Get("restraint"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid restraint: %w", err))
		return
	}
	th, err := s.model.ThresholdAt(ir)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ThresholdResponse{Restraint: ir, Threshold: th})
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	steps := defaultSteps
	if v := r.URL.Query().Get("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > maxSteps {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid steps %q", v))
			return
		}
		steps = n
	}
	seq, err := s.model.SampleCurve(steps)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, slices.Collect(seq))
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if len(req.Measurements) == 0 || len(req.Measurements) > maxBatch {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("want 1..%d measurements, got %d", maxBatch, len(req.Measurements)))
		return
	}

	margins := stats.NewMargins()
	resp := ClassifyResponse{Results: make([]Result, 0, len(req.Measurements))}
	entries := make([]journal.Entry, 0, len(req.Measurements))

	for i, lm := range req.Measurements {
		meas := lm.Measurement()
		c, err := s.model.Classify(meas)
		if err != nil {
			s.writeError(w, statusFor(err), fmt.Errorf("measurement %d: %w", i+1, err))
			return
		}
		margin, err := s.model.Margin(meas)
		if err != nil {
			s.writeError(w, statusFor(err), fmt.Errorf("measurement %d: %w", i+1, err))
			return
		}
		margins.Record(meas, c)

		resp.Results = append(resp.Results, Result{
			LabeledMeasurement: lm,
			Decision:           c.Decision,
			Threshold:          c.Threshold,
			Margin:             margin,
		})
		entries = append(entries, journal.Entry{Label: lm.Label, Measurement: meas, Classification: c})
	}
	resp.Summary = margins.Summary()

	if s.recorder != nil {
		// A journal failure is logged and does not fail the classification.
		if _, err := s.recorder.Record(r.Context(), entries...); err != nil {
			s.log.Error("failed to journal classifications", "error", err, "count", len(entries))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	entries, err := s.recorder.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func statusFor(err error) int {
	if errors.Is(err, characteristic.ErrOutOfDomain) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
