package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"rfmbasket/internal/config"
	apierrors "rfmbasket/internal/errors"
	appmiddleware "rfmbasket/internal/middleware"
	"rfmbasket/internal/services"
	"rfmbasket/internal/validation"
	"rfmbasket/pkg/contracts/domain"
)

const (
	// UploadField is the multipart form field carrying the spreadsheet.
	UploadField = "file"

	// multipartMemory is kept in memory before parts spill to temp files.
	multipartMemory = 8 << 20

	// multipartOverhead allows for boundaries and part headers on top of
	// the file size limit.
	multipartOverhead = 64 << 10
)

// AnalysisHandler serves spreadsheet uploads.
type AnalysisHandler struct {
	service      *services.AnalysisService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	query        *appmiddleware.QueryParamValidator
	previewRows  int
	topRules     int
}

// NewAnalysisHandler creates a new analysis handler. previewRows and topRules
// bound the preview and rules query parameters.
func NewAnalysisHandler(service *services.AnalysisService, cfg config.AnalysisConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
		query:        appmiddleware.NewQueryParamValidator(logger, errorHandler),
		previewRows:  cfg.PreviewRows,
		topRules:     cfg.TopRules,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(appmiddleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))

	r.Post("/", h.Analyze)
	r.Post("/segments.csv", h.ExportSegments)

	return r
}

// Analyze handles POST /api/analysis. The response carries the previews,
// segments with cluster summary and scatter points, and the top rules.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	preview, ok := h.query.ValidateInt(w, r, "preview", 0, h.previewRows, h.previewRows)
	if !ok {
		return
	}
	topRules, ok := h.query.ValidateInt(w, r, "rules", 1, h.topRules, h.topRules)
	if !ok {
		return
	}

	result, ok := h.run(w, r)
	if !ok {
		return
	}

	trimResult(result, preview, topRules)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// ExportSegments handles POST /api/analysis/segments.csv and streams the
// customer segments table as an attachment.
func (h *AnalysisHandler) ExportSegments(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, config.SegmentsFileName))
	w.Header().Set("X-Analysis-Run-ID", result.RunID)
	w.WriteHeader(http.StatusOK)

	if err := h.service.WriteSegments(w, result); err != nil {
		// Headers are gone; the client sees a truncated download
		h.logger.ErrorContext(r.Context(), "failed to stream segments",
			slog.String("error", err.Error()),
			slog.String("run_id", result.RunID),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// run reads the upload and analyses it. On failure the problem response has
// been written and ok is false.
func (h *AnalysisHandler) run(w http.ResponseWriter, r *http.Request) (*domain.AnalysisResult, bool) {
	reqID := middleware.GetReqID(r.Context())

	file, header, err := h.readUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	h.logger.InfoContext(r.Context(), "analysing upload",
		slog.String("request_id", reqID),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
	)

	result, err := h.service.Analyze(r.Context(), services.Upload{
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, translateServiceError(err))
		return nil, false
	}

	return result, true
}

func (h *AnalysisHandler) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if limit := h.service.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, translateFormError(err)
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return nil, nil, translateFormError(err)
	}
	return file, header, nil
}

// translateFormError maps multipart parsing failures to API errors.
func translateFormError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return err
	case strings.Contains(err.Error(), "request body too large"):
		return apierrors.ErrPayloadTooLarge
	case errors.Is(err, http.ErrMissingFile):
		return apierrors.ErrMissingFile
	default:
		return apierrors.InvalidRequestWithError(err)
	}
}

// translateServiceError maps upload rejections to API errors. Pipeline
// errors pass through and are mapped by the error handler.
func translateServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoFile):
		return apierrors.ErrMissingFile
	case errors.Is(err, validation.ErrFileTooLarge):
		return apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			"Uploaded file exceeds the size limit", err.Error())
	case errors.Is(err, validation.ErrInvalidUpload):
		return apierrors.InvalidUploadWithError(err)
	default:
		return err
	}
}

// trimResult cuts the previews and rules down to what the caller asked for.
func trimResult(result *domain.AnalysisResult, preview, rules int) {
	if len(result.RawPreview) > preview {
		result.RawPreview = result.RawPreview[:preview]
	}
	if len(result.CleanedPreview) > preview {
		result.CleanedPreview = result.CleanedPreview[:preview]
	}
	if len(result.Rules) > rules {
		result.Rules = result.Rules[:rules]
	}
}
