package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/export"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/andresuchdata/stockcover/internal/sheet"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const defaultInspectRows = 40

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(service *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// AnalyzeUpload handles a multipart upload with one "stock" file and one or
// more "outflow" files (oldest period first). Override fields travel as form values.
func (h *AnalysisHandler) AnalyzeUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	stockFiles := form.File["stock"]
	if len(stockFiles) != 1 {
		errorResponse(c, http.StatusBadRequest, errors.New("exactly one stock file is required"))
		return
	}
	outflowFiles := form.File["outflow"]
	if len(outflowFiles) == 0 {
		errorResponse(c, http.StatusBadRequest, errors.New("at least one outflow file is required"))
		return
	}

	opts, err := parseOptions(c.PostForm)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", c.PostForm("format")))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	stock, err := readUpload(stockFiles[0])
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	req := service.Request{Stock: stock, Options: opts}
	for _, fh := range outflowFiles {
		src, err := readUpload(fh)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, err)
			return
		}
		req.Outflows = append(req.Outflows, src)
	}

	report, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		analysisError(c, err)
		return
	}
	writeReport(c, report, format)
}

// RemoteRequest references sources instead of uploading them.
type RemoteRequest struct {
	Stock    service.Source   `json:"stock"`
	Outflows []service.Source `json:"outflows"`
	Options  domain.Options   `json:"options"`
	Format   string           `json:"format"`
	Refresh  bool             `json:"refresh"`
}

func (h *AnalysisHandler) AnalyzeRemote(c *gin.Context) {
	var body RemoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Stock.Ref == "" {
		errorResponse(c, http.StatusBadRequest, errors.New("stock.ref is required"))
		return
	}
	format, err := export.ParseFormat(body.Format)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	report, err := h.service.Analyze(c.Request.Context(), service.Request{
		Stock:    body.Stock,
		Outflows: body.Outflows,
		Options:  body.Options,
		Refresh:  body.Refresh,
	})
	if err != nil {
		analysisError(c, err)
		return
	}
	writeReport(c, report, format)
}

// ClearCache drops all cached reports.
func (h *AnalysisHandler) ClearCache(c *gin.Context) {
	if err := h.service.ClearCache(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Inspect shows the inferred schema and row hints of one uploaded "file".
func (h *AnalysisHandler) Inspect(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	kind := domain.SourceKind(c.DefaultPostForm("kind", string(domain.SourceStock)))
	if kind != domain.SourceStock && kind != domain.SourceOutflow {
		errorResponse(c, http.StatusBadRequest, fmt.Errorf("kind must be stock or outflow"))
		return
	}
	rows := defaultInspectRows
	if v := c.PostForm("rows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rows = n
		}
	}

	src, err := readUpload(fh)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	result, err := h.service.Inspect(c.Request.Context(), src, kind, rows)
	if err != nil {
		analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":    domain.DefaultCategory,
		"categories": h.service.Categories(),
	})
}

func readUpload(fh *multipart.FileHeader) (service.Source, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Source{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Source{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return service.Source{Name: fh.Filename, Data: data}, nil
}

// parseOptions reads the override fields of a form.
func parseOptions(get func(string) string) (domain.Options, error) {
	var opts domain.Options

	for field, dst := range map[string]**int{
		"start_row_stock":     &opts.StartRowStock,
		"start_row_outflow":   &opts.StartRowOutflow,
		"desired_period_days": &opts.DesiredPeriodDays,
	} {
		v := strings.TrimSpace(get(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, &domain.OptionsError{Field: field, Reason: "must be an integer"}
		}
		*dst = &n
	}

	for field, dst := range map[string]**domain.ColumnMapping{
		"column_mapping_stock":   &opts.MappingStock,
		"column_mapping_outflow": &opts.MappingOutflow,
	} {
		v := strings.TrimSpace(get(field))
		if v == "" {
			continue
		}
		m, err := domain.ParseColumnMapping(v)
		if err != nil {
			var optErr *domain.OptionsError
			if errors.As(err, &optErr) {
				return opts, &domain.OptionsError{Field: field, Reason: optErr.Reason}
			}
			return opts, err
		}
		*dst = &m
	}

	if v := strings.TrimSpace(get("category")); v != "" {
		category, ok := domain.ParseCategory(v)
		if !ok {
			return opts, &domain.OptionsError{Field: "category", Reason: fmt.Sprintf("unknown category %q", v)}
		}
		opts.Category = &category
	}

	if v := strings.TrimSpace(get("patient_volume")); v != "" {
		d, ok := sheet.ParseNumber(v)
		if !ok {
			return opts, &domain.OptionsError{Field: "patient_volume", Reason: "must be a number"}
		}
		volume := d.InexactFloat64()
		opts.PatientVolume = &volume
	}

	if v := strings.TrimSpace(get("forecast")); v != "" {
		forecast, err := strconv.ParseBool(v)
		if err != nil {
			return opts, &domain.OptionsError{Field: "forecast", Reason: "must be true or false"}
		}
		opts.Forecast = forecast
	}

	return opts, nil
}

func writeReport(c *gin.Context, report *domain.Report, format export.Format) {
	switch format {
	case export.FormatCSV:
		writeAttachment(c, report, "text/csv; charset=utf-8", "csv", export.WriteCSV)
	case export.FormatXLSX:
		writeAttachment(c, report, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", export.WriteXLSX)
	case export.FormatTable:
		var buf bytes.Buffer
		if err := export.WriteTable(&buf, report); err != nil {
			errorResponse(c, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	default:
		c.JSON(http.StatusOK, report)
	}
}

func writeAttachment(c *gin.Context, report *domain.Report, contentType, ext string, write func(io.Writer, *domain.Report) error) {
	var buf bytes.Buffer
	if err := write(&buf, report); err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=analise-%s.%s", report.RunID, ext))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// analysisError maps engine and service errors to responses. Recoverable
// inference failures carry a code so clients can ask for overrides.
func analysisError(c *gin.Context, err error) {
	var (
		optErr    *domain.OptionsError
		srcErr    *service.SourceError
		schemaErr *domain.SchemaInferenceError
		mapErr    *domain.ColumnMappingError
		overlap   *domain.NoOverlapError
	)
	switch {
	case errors.As(err, &optErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_option", "field": optErr.Field})
	case errors.As(err, &srcErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "unreadable_source", "source": srcErr.Source})
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(), "code": "start_row_not_found",
			"source": schemaErr.Source, "scan_depth": schemaErr.ScanDepth,
		})
	case errors.As(err, &mapErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(), "code": "column_not_found",
			"source": mapErr.Source, "role": mapErr.Role,
		})
	case errors.As(err, &overlap):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(), "code": "no_overlap",
			"stock_count": overlap.StockCount, "outflow_count": overlap.OutflowCount,
		})
	default:
		errorResponse(c, http.StatusInternalServerError, err)
	}
}

func errorResponse(c *gin.Context, statusCode int, err error) {
	log.Error().Err(err).Int("status", statusCode).Msg("analysis request failed")
	c.JSON(statusCode, gin.H{"error": err.Error()})
}
