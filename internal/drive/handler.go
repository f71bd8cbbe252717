package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Browser is the Drive access the handler needs.
type Browser interface {
	Lister
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// Analyzer runs an analysis over resolved sources.
type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (*domain.Report, error)
}

type Handler struct {
	drive    Browser
	analyzer Analyzer
}

func NewHandler(drive Browser, analyzer Analyzer) *Handler {
	return &Handler{
		drive:    drive,
		analyzer: analyzer,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/analyze", h.Analyze).Methods(http.MethodPost)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")

	if folderPath := query.Get("path"); folderPath != "" {
		var err error
		folderID, err = h.drive.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	var (
		files []*File
		err   error
	)
	if query.Get("spreadsheets") == "true" {
		files, err = Spreadsheets(r.Context(), h.drive, folderID)
	} else {
		files, err = h.drive.ListFiles(r.Context(), folderID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []*File{}
	}

	writeJSON(w, http.StatusOK, files)
}

// AnalyzeRequest names the stock file and the outflow periods, either as
// explicit file ids (oldest first) or as a folder of period exports.
type AnalyzeRequest struct {
	StockFileID     string         `json:"stock_file_id"`
	OutflowFileIDs  []string       `json:"outflow_file_ids"`
	OutflowFolderID string         `json:"outflow_folder_id"`
	Options         domain.Options `json:"options"`
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.StockFileID == "" {
		writeError(w, http.StatusBadRequest, "stock_file_id is required")
		return
	}

	outflows := make([]service.Source, 0, len(req.OutflowFileIDs))
	for _, id := range req.OutflowFileIDs {
		outflows = append(outflows, service.Source{Ref: Ref(id)})
	}
	if req.OutflowFolderID != "" {
		files, err := Spreadsheets(r.Context(), h.drive, req.OutflowFolderID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		for _, f := range files {
			outflows = append(outflows, service.Source{Name: f.Name, Ref: Ref(f.ID)})
		}
	}
	if len(outflows) == 0 {
		writeError(w, http.StatusBadRequest, "outflow_file_ids or outflow_folder_id is required")
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), service.Request{
		Stock:    service.Source{Ref: Ref(req.StockFileID)},
		Outflows: outflows,
		Options:  req.Options,
	})
	if err != nil {
		status := statusFor(err)
		log.Warn().Err(err).Int("status", status).Msg("drive: analysis failed")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func statusFor(err error) int {
	var (
		optErr    *domain.OptionsError
		srcErr    *service.SourceError
		schemaErr *domain.SchemaInferenceError
		mapErr    *domain.ColumnMappingError
		overlap   *domain.NoOverlapError
	)
	switch {
	case errors.As(err, &optErr):
		return http.StatusBadRequest
	case errors.As(err, &srcErr):
		return http.StatusBadGateway
	case errors.As(err, &schemaErr), errors.As(err, &mapErr), errors.As(err, &overlap):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("drive: encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
