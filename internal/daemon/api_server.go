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
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	svc    *api.Service

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
		svc:    d.svc,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	route := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(token, handler))
	}
	route("/api/status", srv.handleStatus)
	route("/api/jobs", srv.handleJobs)
	route("/api/jobs/", srv.handleJob)
	route("/api/batches", srv.handleBatches)
	route("/api/batches/", srv.handleBatch)
	route("/api/exports", srv.handleExports)
	route("/api/exports/", srv.handleExport)
	route("/api/cache/stats", srv.handleCacheStats)
	route("/api/cache", srv.handleCache)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var statuses []queue.Status
		for _, value := range r.URL.Query()["status"] {
			if status, ok := queue.ParseStatus(value); ok {
				statuses = append(statuses, status)
			}
		}
		jobs, err := s.svc.ListJobs(r.Context(), statuses...)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
	case http.MethodPost:
		var req queue.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		job, err := s.svc.SubmitJob(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.JobResponse{Job: job})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.svc.DescribeJob(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: job})
}

type createBatchRequest struct {
	Requests []queue.Request `json:"requests"`
}

func (s *apiServer) handleBatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		batches, total, err := s.svc.ListBatches(r.Context(), offset, limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchListResponse{
			Batches: batches,
			Total:   total,
			Offset:  offset,
			Limit:   limit,
		})
	case http.MethodPost:
		var req createBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		batch, err := s.svc.CreateBatch(r.Context(), req.Requests)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.BatchResponse{Batch: batch})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/batches/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		batch, err := s.svc.DescribeBatch(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
	case action == "" && r.Method == http.MethodDelete:
		if err := s.svc.DeleteBatch(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	case action == "cancel" && r.Method == http.MethodPost:
		batch, err := s.svc.CancelBatch(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
	case action == "retry" && r.Method == http.MethodPost:
		batch, err := s.svc.RetryBatch(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createExportRequest struct {
	Specs []queue.ExportSpec `json:"specs"`
}

func (s *apiServer) handleExports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req createExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	batch, err := s.svc.CreateExportBatch(r.Context(), req.Specs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.BatchResponse{Batch: batch})
}

// handleExport serves reads and retries for export batches. Export batches
// share storage with pipeline batches, so this delegates to the batch
// operations under export-flavored paths.
func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/exports/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "export batch not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		batch, err := s.svc.DescribeBatch(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
	case action == "retry" && r.Method == http.MethodPost:
		batch, err := s.svc.RetryBatch(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: batch})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.CacheStats())
}

func (s *apiServer) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.svc.ClearCache(); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"cleared": "cache"})
}

// writeServiceError maps classified errors to HTTP status codes. Unclassified
// errors are logged and reported with a generic message so internals never
// leak to clients.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, services.Message(err))
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, services.Message(err))
	case errors.Is(err, services.ErrConflict):
		s.writeError(w, http.StatusConflict, services.Message(err))
	default:
		s.logger.Error("request failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
