package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/autthapolsaiyat/investigates-sub004/internal/config"
	"github.com/autthapolsaiyat/investigates-sub004/internal/database"
	"github.com/autthapolsaiyat/investigates-sub004/internal/engine"
)

// Handler serves the import-analysis HTTP API.
type Handler struct {
	engine        *engine.Engine
	maxUploadSize int64
	logger        *slog.Logger
}

// RunDetail is a run record together with its per-file records.
type RunDetail struct {
	*database.ImportRun
	Files []*database.ImportFile `json:"files,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the HTTP handler.
func NewHandler(eng *engine.Engine, cfg config.ServerConfig, logger *slog.Logger) *Handler {
	return &Handler{
		engine:        eng,
		maxUploadSize: cfg.MaxUploadSize,
		logger:        logger,
	}
}

// RegisterRoutes wires all API routes onto the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/imports/analyze", h.AnalyzeImport).Methods(http.MethodPost)
	api.HandleFunc("/imports/runs", h.ListRuns).Methods(http.MethodGet)
	api.HandleFunc("/imports/runs/{runId}", h.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/imports/runs/{runId}/graph", h.GetRunGraph).Methods(http.MethodGet)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
}

// AnalyzeImport accepts a multipart upload of source files and runs the
// full analysis pipeline synchronously, returning the completed run.
func (h *Handler) AnalyzeImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	caseID, err := strconv.Atoi(r.FormValue("case_id"))
	if err != nil || caseID <= 0 {
		h.writeError(w, http.StatusBadRequest, "case_id must be a positive integer")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		h.writeError(w, http.StatusBadRequest, "at least one file is required")
		return
	}

	var files []engine.SourceFile
	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "failed to read upload "+header.Filename)
			return
		}
		defer f.Close()
		files = append(files, engine.SourceFile{Name: header.Filename, Reader: f})
	}

	run, err := h.engine.Analyze(r.Context(), caseID, files, r.FormValue("created_by"))
	if err != nil {
		h.logger.Error("Analysis request failed", "case_id", caseID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	status := http.StatusCreated
	if run.Status == engine.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, run)
}

// ListRuns lists recent runs for a case.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.Atoi(r.URL.Query().Get("case_id"))
	if err != nil || caseID <= 0 {
		h.writeError(w, http.StatusBadRequest, "case_id query parameter is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.engine.ListRuns(r.Context(), caseID, limit)
	if err != nil {
		h.logger.Error("Failed to list runs", "case_id", caseID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*database.ImportRun{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run record with its file records.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	run, err := h.engine.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to get run", "run_id", runID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	files, err := h.engine.ListRunFiles(r.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to list run files", "run_id", runID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.writeJSON(w, http.StatusOK, &RunDetail{ImportRun: run, Files: files})
}

// GetRunGraph returns the stored graph of a completed run.
func (h *Handler) GetRunGraph(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	result, err := h.engine.GetRunGraph(r.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to get run graph", "run_id", runID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get run graph")
		return
	}
	if result == nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "import-analysis",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports readiness to serve traffic.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}
