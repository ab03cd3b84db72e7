// Package webhook exposes the orchestrator, approval gate, and healer
// over a small authenticated HTTP API. Slack interaction callbacks and
// cron triggers both land here.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"pressline/internal/approval"
	"pressline/internal/config"
	"pressline/internal/healer"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/store"
)

// Server is the daemon-side HTTP API.
type Server struct {
	bind   string
	logger *slog.Logger
	store  *store.Store
	orch   *orchestrator.Orchestrator
	gate   *approval.Gate
	healer *healer.Healer

	listener net.Listener
	server   *http.Server
}

// NewServer wires the API routes. Returns nil when no bind address is
// configured; the daemon then runs without an HTTP surface.
func NewServer(cfg *config.Config, st *store.Store, orch *orchestrator.Orchestrator, gate *approval.Gate, h *healer.Healer, logger *slog.Logger) *Server {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "webhook"),
		store:  st,
		orch:   orch,
		gate:   gate,
		healer: h,
	}
	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/runs", authMiddleware(token, srv.handleRuns))
	mux.HandleFunc("/api/runs/", authMiddleware(token, srv.handleRun))
	mux.HandleFunc("/api/approvals", authMiddleware(token, srv.handleApprovals))
	mux.HandleFunc("/api/approvals/", authMiddleware(token, srv.handleApprovalResolve))
	mux.HandleFunc("/api/heal", authMiddleware(token, srv.handleHeal))
	mux.HandleFunc("/api/logs", authMiddleware(token, srv.handleLogs))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving and shuts down when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.logger.Info("webhook server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, draining in-flight requests briefly.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	health := s.orch.HealthReport(r.Context())
	type stageHealth struct {
		Name   string `json:"name"`
		Ready  bool   `json:"ready"`
		Detail string `json:"detail,omitempty"`
	}
	stages := make([]stageHealth, len(health))
	for i, item := range health {
		stages[i] = stageHealth{Name: item.Name, Ready: item.Ready, Detail: item.Detail}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"database": s.store.Path(),
		"runs":     stats,
		"stages":   stages,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := queryInt(r, "limit", 50)
		runs, err := s.store.ListRuns(r.Context(), limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	case http.MethodPost:
		var payload struct {
			Kind    string `json:"kind"`
			Trigger string `json:"trigger"`
			TopicID int64  `json:"topic_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		kind, ok := pipeline.ParseKind(payload.Kind)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown pipeline kind %q", payload.Kind))
			return
		}
		trigger := store.TriggerManual
		if payload.Trigger == string(store.TriggerCron) {
			trigger = store.TriggerCron
		}
		runID, err := s.orch.Run(r.Context(), kind, trigger, payload.TopicID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		run, err := s.store.GetRun(r.Context(), runID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{"run": run})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	runID, action, _ := strings.Cut(rest, "/")
	if runID == "" {
		s.writeError(w, http.StatusNotFound, "run id required")
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		run, err := s.store.GetRun(r.Context(), runID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if run == nil {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
	case action == "advance" && r.Method == http.MethodPost:
		outcome, err := s.orch.Advance(r.Context(), runID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"outcome": outcome})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pending, err := s.gate.Pending(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"approvals": pending})
}

func (s *Server) handleApprovalResolve(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/approvals/")
	approvalID, action, _ := strings.Cut(rest, "/")
	if approvalID == "" || action != "resolve" || r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Decision    string `json:"decision"`
		ResponderID string `json:"responder_id"`
		Feedback    string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resolution, err := s.gate.Resolve(r.Context(), approvalID, payload.Decision, payload.ResponderID, payload.Feedback)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	body := map[string]any{
		"approval": resolution.Approval,
		"outcome":  resolution.Outcome,
	}
	if resolution.NewTopic != nil {
		body["new_topic"] = resolution.NewTopic
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		ContentID int64    `json:"content_id"`
		Limit     int      `json:"limit"`
		ScanOnly  bool     `json:"scan_only"`
		Defects   []string `json:"defects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.ContentID != 0 {
		result, err := s.healer.HealContent(r.Context(), payload.ContentID)
		if err != nil && result.Outcome == pipeline.HealFailed {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
		return
	}
	defects := make([]pipeline.Defect, 0, len(payload.Defects))
	for _, value := range payload.Defects {
		defect, ok := pipeline.ParseDefect(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown defect %q", value))
			return
		}
		defects = append(defects, defect)
	}
	var report *healer.Report
	var err error
	if payload.ScanOnly {
		report, err = s.healer.Scan(r.Context(), payload.Limit, defects...)
	} else {
		report, err = s.healer.HealAll(r.Context(), payload.Limit, defects...)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := queryInt(r, "limit", 100)
	if runID := strings.TrimSpace(r.URL.Query().Get("run")); runID != "" {
		entries, err := s.store.RunLogs(r.Context(), runID, limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
		return
	}
	topicID := int64(queryInt(r, "topic", 0))
	entries, err := s.store.QueryLogs(r.Context(), topicID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service sentinel errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, services.ErrExternal):
		status = http.StatusBadGateway
	}
	s.writeError(w, status, services.Message(err))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
