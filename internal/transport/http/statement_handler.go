package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "incomestatement/internal/errors"
	"incomestatement/internal/exporter"
	"incomestatement/internal/middleware"
	"incomestatement/internal/services"
	"incomestatement/internal/validation"
	api "incomestatement/pkg/contracts/api/v1"
	"incomestatement/pkg/contracts/domain"
)

// multipartOverhead leaves room for boundaries and part headers around the file
const multipartOverhead = 64 << 10

// StatementHandler handles dataset and computation requests
type StatementHandler struct {
	service      StatementService
	files        *validation.FileValidator
	validator    *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStatementHandler creates a new statement handler. maxUpload bounds the
// multipart body; the service enforces the exact file size.
func NewStatementHandler(
	service StatementService,
	files *validation.FileValidator,
	maxUpload int64,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *StatementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementHandler{
		service:      service,
		files:        files,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "statement_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *StatementHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json", "multipart/form-data"))
	r.Use(h.validator.ValidateRequest)

	r.Get("/", h.ListDatasets)
	r.Post("/", h.Upload)
	r.Post("/sheets", h.ImportSheet)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetDataset)
		r.Delete("/", h.DeleteDataset)
		r.Get("/products", h.GetProducts)
		r.Post("/compute", h.Compute)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/export.xlsx", h.ExportXLSX)
		r.Get("/chart.png", h.Chart)
		r.Get("/report", h.Report)
	})

	return r
}

// ListDatasets handles GET /api/datasets
func (h *StatementHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := h.service.Datasets(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasets,
		"count":  len(datasets),
	})
}

// Upload handles POST /api/datasets
func (h *StatementHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.errorHandler.HandleError(w, r, fmt.Errorf("%w: more than %d bytes", services.ErrUploadTooLarge, h.maxUpload))
		case errors.Is(err, http.ErrMissingFile):
			h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		default:
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return
	}
	defer file.Close()

	if err := h.files.ValidateUploadName(header.Filename); err != nil {
		if errors.Is(err, validation.ErrExtensionNotAllowed) {
			h.errorHandler.HandleError(w, r, apierrors.New(http.StatusUnsupportedMediaType, apierrors.CodeUnsupportedFormat, err.Error()))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: "file", Message: err.Error()},
		}))
		return
	}

	summary, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset uploaded",
		slog.String("dataset_id", summary.ID),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.DatasetResponse{Status: "success", Data: summary})
}

// ImportSheet handles POST /api/datasets/sheets
func (h *StatementHandler) ImportSheet(w http.ResponseWriter, r *http.Request) {
	var req api.SheetImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.ImportSheet(r.Context(), req.SpreadsheetID, req.Range)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.DatasetResponse{Status: "success", Data: summary})
}

// GetDataset handles GET /api/datasets/{id}
func (h *StatementHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Dataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.DatasetResponse{Status: "success", Data: summary})
}

// DeleteDataset handles DELETE /api/datasets/{id}
func (h *StatementHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProducts handles GET /api/datasets/{id}/products
func (h *StatementHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ProductsResponse{Status: "success", Data: products, Count: len(products)})
}

// Compute handles POST /api/datasets/{id}/compute
func (h *StatementHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req api.ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Compute(r.Context(), chi.URLParam(r, "id"), req.Selection())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.ComputeResponse{
		Status: "success",
		Data: api.ComputeData{
			Result: result,
			View:   exporter.NewView(result),
		},
	})
}

// ExportCSV handles GET /api/datasets/{id}/export.csv
func (h *StatementHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	bom, ok := h.query.ValidateEnum(w, r, "bom", []string{"true", "false"}, "false")
	if !ok {
		return
	}
	formatted, ok := h.query.ValidateEnum(w, r, "formatted", []string{"true", "false"}, "false")
	if !ok {
		return
	}

	opts := exporter.CSVOptions{BOMPrefix: bom == "true", Formatted: formatted == "true"}
	h.export(w, r, "text/csv; charset=utf-8", "income_statement.csv", func(buf io.Writer, result *domain.ResultSet) error {
		return exporter.WriteCSV(buf, result, opts)
	})
}

// ExportXLSX handles GET /api/datasets/{id}/export.xlsx
func (h *StatementHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "income_statement.xlsx", exporter.WriteXLSX)
}

// Chart handles GET /api/datasets/{id}/chart.png
func (h *StatementHandler) Chart(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "image/png", "", func(buf io.Writer, result *domain.ResultSet) error {
		return exporter.WriteChart(buf, result, exporter.DefaultChartOptions)
	})
}

// Report handles GET /api/datasets/{id}/report
func (h *StatementHandler) Report(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", []string{"html", "markdown"}, "html")
	if !ok {
		return
	}

	if format == "markdown" {
		h.export(w, r, "text/markdown; charset=utf-8", "", func(buf io.Writer, result *domain.ResultSet) error {
			_, err := io.WriteString(buf, exporter.Markdown(result))
			return err
		})
		return
	}
	h.export(w, r, "text/html; charset=utf-8", "", exporter.WriteHTML)
}

// export computes the selection from ?products= and writes the rendered
// output. Rendering goes to a buffer so failures still produce a problem response.
func (h *StatementHandler) export(w http.ResponseWriter, r *http.Request, contentType, attachment string, write func(io.Writer, *domain.ResultSet) error) {
	selection, ok := h.query.ValidateProducts(w, r, "products")
	if !ok {
		return
	}

	result, err := h.service.Compute(r.Context(), chi.URLParam(r, "id"), selection)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, result); err != nil {
		h.logger.ErrorContext(r.Context(), "render failed",
			slog.String("content_type", contentType),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment))
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
