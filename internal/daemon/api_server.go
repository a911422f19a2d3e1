package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wavecatch/internal/api"
	"wavecatch/internal/config"
	"wavecatch/internal/logging"
	"wavecatch/internal/services"
)

const (
	defaultEventLimit = 200
	// maxFollowWait bounds a long-poll below the server write timeout.
	maxFollowWait = 25 * time.Second
	maxBodyBytes  = 1 << 20
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withRequestID(s.requireToken(token, h)))
	}
	handle("GET /api/status", s.handleStatus)
	handle("GET /api/jobs", s.handleListJobs)
	handle("POST /api/jobs", s.handleSubmit)
	handle("DELETE /api/jobs", s.handleClearFinished)
	handle("GET /api/jobs/{id}", s.handleGetJob)
	handle("DELETE /api/jobs/{id}", s.handleRemoveJob)
	handle("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	handle("POST /api/analyze", s.handleAnalyze)
	handle("GET /api/events", s.handleEvents)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, status.API())
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(s.daemon.Jobs())})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.daemon.Submit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleClearFinished(w http.ResponseWriter, _ *http.Request) {
	removed := s.daemon.ClearFinished()
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.Job(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Remove(r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cancelled, err := s.daemon.Cancel(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	job, _ := s.daemon.Job(id)
	status := http.StatusOK
	if !cancelled {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req api.AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	states, err := s.daemon.Analyze(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := api.AnalyzeResponse{States: make([]api.JobState, 0, len(states))}
	for _, st := range states {
		resp.States = append(resp.States, api.FromState(st))
	}
	if len(resp.States) > 0 {
		resp.Summary = resp.States[len(resp.States)-1]
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultEventLimit
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxFollowWait)
		defer cancel()
	}

	updates, next, err := s.daemon.Updates().Fetch(ctx, since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.CodeInternal)
		return
	}
	if r.Context().Err() != nil {
		return
	}
	s.writeJSON(w, http.StatusOK, api.UpdateStreamResponse{
		Updates: api.FromUpdates(updates),
		Next:    next,
	})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), services.CodeValidation)
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string, code services.ErrorCode) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: string(code)})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := services.Code(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.log()).Error("api request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, services.Message(err), code)
}

func httpStatus(code services.ErrorCode) int {
	switch code {
	case services.CodeValidation:
		return http.StatusBadRequest
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeConfiguration:
		return http.StatusUnprocessableEntity
	case services.CodeTimeout:
		return http.StatusGatewayTimeout
	case services.CodeExternalTool:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
