package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"campaignpulse/internal/dataprocessing"
	apierrors "campaignpulse/internal/errors"
	"campaignpulse/internal/exporter"
	"campaignpulse/internal/middleware"
	"campaignpulse/internal/services"
	"campaignpulse/internal/validation"
	"campaignpulse/pkg/contracts/domain"
)

// UploadField is the multipart field carrying campaign spreadsheets.
const UploadField = "files"

// multipartMemory is how much of an upload is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// DashboardHandler serves sessions, uploads, dashboard views and exports.
type DashboardHandler struct {
	service        DashboardServiceInterface
	validator      *validation.Validator
	query          *middleware.QueryParamValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDashboardHandler creates the handler. maxUploadBytes caps a whole
// upload request; zero disables the cap.
func NewDashboardHandler(
	service DashboardServiceInterface,
	validator *validation.Validator,
	maxUploadBytes int64,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *DashboardHandler {
	if validator == nil {
		validator = validation.NewValidator()
	}
	return &DashboardHandler{
		service:        service,
		validator:      validator,
		query:          middleware.NewQueryParamValidator(logger, errorHandler),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dashboard_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the session routes, mounted at /api/sessions. The template
// download is registered separately since it needs no session.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	jsonBody := middleware.ContentTypeValidator(h.errorHandler, "application/json")

	r.Post("/", h.CreateSession)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.EndSession)

		r.With(
			middleware.MaxBodySize(h.maxUploadBytes, h.errorHandler),
			middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"),
		).Post("/uploads", h.Upload)

		r.With(jsonBody).Post("/dashboard", h.Dashboard)
		r.With(jsonBody).Post("/export.csv", h.ExportCSV)
		r.With(jsonBody).Post("/export.xlsx", h.ExportXLSX)
	})

	return r
}

// SessionCtx rejects malformed session ids before they reach the service.
func (h *DashboardHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" || len(id) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Invalid session id"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession handles POST /api/sessions
func (h *DashboardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	info := h.service.CreateSession(r.Context())

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// GetSession handles GET /api/sessions/{id}
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// EndSession handles DELETE /api/sessions/{id}
func (h *DashboardHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EndSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload handles POST /api/sessions/{id}/uploads?mode=replace|append
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	mode, ok := h.query.ValidateEnum(w, r, "mode", services.UploadModes, string(services.UploadReplace))
	if !ok {
		return
	}

	files, err := readUploadedFiles(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "upload received",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("session_id", id),
		slog.String("mode", mode),
		slog.Int("files", len(files)))

	result, err := h.service.Upload(ctx, id, services.UploadMode(mode), files)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// Dashboard handles POST /api/sessions/{id}/dashboard with a JSON filter.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	spec, err := h.validator.DecodeFilter(r.Body)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Dashboard(r.Context(), chi.URLParam(r, "id"), spec)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, view)
}

// ExportCSV handles POST /api/sessions/{id}/export.csv
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, services.ExportCSV, exporter.CSVContentType, "campaign_data.csv")
}

// ExportXLSX handles POST /api/sessions/{id}/export.xlsx
func (h *DashboardHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, services.ExportXLSX, exporter.XLSXContentType, "campaign_data.xlsx")
}

func (h *DashboardHandler) export(w http.ResponseWriter, r *http.Request, format services.ExportFormat, contentType, filename string) {
	spec, err := h.validator.DecodeFilter(r.Body)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Buffered so a failure can still be reported as a problem response.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), chi.URLParam(r, "id"), spec, format, &buf); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.download(w, r, contentType, filename, buf.Bytes())
}

// Template handles GET /api/template.xlsx
func (h *DashboardHandler) Template(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Template(r.Context(), &buf); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.download(w, r, exporter.XLSXContentType, "campaign_template.xlsx", buf.Bytes())
}

func (h *DashboardHandler) download(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}

func (h *DashboardHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.HandleError(w, r, toAPIError(err))
}

// toAPIError maps pipeline and service errors onto problem responses.
// Per-file failures of a rejected upload travel as the file_errors member.
func toAPIError(err error) error {
	var uploadErr *services.UploadError
	isUpload := errors.As(err, &uploadErr)

	var (
		apiErr  *apierrors.APIError
		missing *dataprocessing.MissingColumnsError
	)
	switch {
	case errors.As(err, &missing):
		apiErr = apierrors.MissingColumns(missing.Schema, missing.Missing)
	case errors.Is(err, dataprocessing.ErrNoValidData):
		apiErr = apierrors.ErrNoValidData
	case errors.Is(err, dataprocessing.ErrNoFilesUploaded):
		apiErr = apierrors.ErrNoFilesUploaded
	case errors.Is(err, dataprocessing.ErrTooManyFiles):
		apiErr = apierrors.NewWithDetails(
			apierrors.ErrTooManyFiles.StatusCode,
			apierrors.ErrTooManyFiles.ErrorCode,
			apierrors.ErrTooManyFiles.Message,
			err.Error(),
		)
	case errors.Is(err, services.ErrSessionNotFound):
		apiErr = apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrNoDataset):
		apiErr = apierrors.ErrNoDataset
	case errors.Is(err, services.ErrInvalidUploadMode):
		apiErr = apierrors.ErrValidation("mode", err.Error())
	default:
		return err
	}

	if isUpload {
		apiErr = apiErr.With("file_errors", uploadErr.FileErrors)
	}
	return apiErr
}

// readUploadedFiles reads every part of the files field into memory.
func readUploadedFiles(r *http.Request) ([]domain.UploadedFile, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[UploadField]
	files := make([]domain.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, domain.UploadedFile{Name: filepath.Base(fh.Filename), Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
