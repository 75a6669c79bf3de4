package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/transferorder"
	"github.com/garyjia/resident-payroll/pkg/utils"
)

// ExportService is the export surface the handlers depend on
type ExportService interface {
	Export(ctx context.Context, req transferorder.Request) (*transferorder.Result, error)
	Preview(ctx context.Context, req transferorder.Request) (*transferorder.Preview, error)
	Periods(ctx context.Context, kind transferorder.Kind) (*transferorder.Periods, error)
	History(ctx context.Context, limit int) ([]*models.ExportRun, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	exports ExportService
	logger  Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(exports ExportService, logger Logger) *Handlers {
	return &Handlers{
		exports: exports,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ExportRequest is the body of POST /api/exports/:kind and the query of the preview
type ExportRequest struct {
	Year   int    `json:"year" form:"year"`
	Month  int    `json:"month" form:"month"`
	Search string `json:"search" form:"search"`
	Format string `json:"format" form:"format"`
}

// ExportResponse represents a finished export
type ExportResponse struct {
	ID            string            `json:"id"`
	FileName      string            `json:"file_name"`
	Location      string            `json:"location"`
	Pages         int               `json:"pages"`
	Beneficiaries int               `json:"beneficiaries"`
	Entries       int               `json:"entries"`
	GrandTotal    string            `json:"grand_total"`
	AmountInWords string            `json:"amount_in_words"`
	Skipped       []SkippedResponse `json:"skipped"`
	Message       string            `json:"message"`
}

// SkippedResponse is an entry left out of an export
type SkippedResponse struct {
	Index       int    `json:"index"`
	Beneficiary string `json:"beneficiary"`
	Reason      string `json:"reason"`
}

// PreviewRow is one line of the preview grid
type PreviewRow struct {
	Page        int    `json:"page"`
	Type        string `json:"type"` // data, subtotal, carry_out, carry_in, total
	Beneficiary string `json:"beneficiary,omitempty"`
	RIB         string `json:"rib,omitempty"`
	Bank        string `json:"bank,omitempty"`
	FiscalYear  int    `json:"fiscal_year,omitempty"`
	Period      string `json:"period,omitempty"`
	Label       string `json:"label,omitempty"`
	Amount      string `json:"amount"`
}

// PreviewResponse is the aggregated grid of an export before it runs
type PreviewResponse struct {
	Kind          string            `json:"kind"`
	Format        string            `json:"format"`
	Year          int               `json:"year"`
	Month         int               `json:"month"`
	FileName      string            `json:"file_name"`
	ExportEnabled bool              `json:"export_enabled"`
	Beneficiaries int               `json:"beneficiaries"`
	Entries       int               `json:"entries"`
	Pages         int               `json:"pages"`
	GrandTotal    string            `json:"grand_total"`
	AmountInWords string            `json:"amount_in_words"`
	Rows          []PreviewRow      `json:"rows"`
	Skipped       []SkippedResponse `json:"skipped"`
}

// ExportRunResponse represents a recorded export attempt
type ExportRunResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Format        string `json:"format"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	Search        string `json:"search,omitempty"`
	Status        string `json:"status"`
	FileName      string `json:"file_name,omitempty"`
	Location      string `json:"location,omitempty"`
	Template      string `json:"template,omitempty"`
	Beneficiaries int    `json:"beneficiaries"`
	Entries       int    `json:"entries"`
	Skipped       int    `json:"skipped"`
	Pages         int    `json:"pages"`
	GrandTotal    string `json:"grand_total"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ListHistoryRequest represents query parameters for listing export runs
type ListHistoryRequest struct {
	Limit int `form:"limit"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// ListPeriods handles GET /api/exports/:kind/periods
func (h *Handlers) ListPeriods(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}

	periods, err := h.exports.Periods(c.Request.Context(), kind)
	if err != nil {
		h.fail(c, "Failed to list periods", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    periods,
	})
}

// PreviewExport handles GET /api/exports/:kind/preview
func (h *Handlers) PreviewExport(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}

	var req ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	preview, err := h.exports.Preview(c.Request.Context(), toExportRequest(kind, req))
	if err != nil {
		h.fail(c, "Failed to preview export", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toPreviewResponse(preview),
	})
}

// CreateExport handles POST /api/exports/:kind. With ?download=true the
// generated document is returned instead of the JSON summary.
func (h *Handlers) CreateExport(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	h.logger.Info("Triggering export", "kind", kind, "year", req.Year, "month", req.Month, "format", req.Format)

	result, err := h.exports.Export(c.Request.Context(), toExportRequest(kind, req))
	if err != nil {
		h.fail(c, "Failed to export transfer order", err)
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(result.FileName)))
		c.Data(http.StatusOK, result.Format.FileType().ContentType(), result.Content)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toExportResponse(result),
	})
}

// ListHistory handles GET /api/exports/history
func (h *Handlers) ListHistory(c *gin.Context) {
	var req ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	// Set defaults
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	runs, err := h.exports.History(c.Request.Context(), req.Limit)
	if err != nil {
		h.fail(c, "Failed to list export history", err)
		return
	}

	response := make([]ExportRunResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, toExportRunResponse(run))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

func (h *Handlers) parseKind(c *gin.Context) (transferorder.Kind, bool) {
	kind, err := transferorder.ParseKind(c.Param("kind"))
	if err != nil {
		h.logger.Error("Unknown export kind", "kind", c.Param("kind"))
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   err.Error(),
		})
		return "", false
	}
	return kind, true
}

// fail maps export errors to HTTP statuses
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	} else {
		h.logger.Warn(msg, "error", err, "status", status)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, transferorder.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, transferorder.ErrUnknownFormat), errors.Is(err, transferorder.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, transferorder.ErrEmptyResultSet):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func toExportRequest(kind transferorder.Kind, req ExportRequest) transferorder.Request {
	return transferorder.Request{
		Kind:   kind,
		Format: transferorder.Format(req.Format),
		Month:  req.Month,
		Year:   req.Year,
		Search: utils.SanitizeSearch(req.Search),
	}
}

func toSkippedResponse(skipped []payroll.SkippedEntry) []SkippedResponse {
	out := make([]SkippedResponse, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, SkippedResponse{Index: s.Index, Beneficiary: s.BeneficiaryName, Reason: s.Reason})
	}
	return out
}

func toExportResponse(result *transferorder.Result) ExportResponse {
	return ExportResponse{
		ID:            result.ID,
		FileName:      result.FileName,
		Location:      result.Location,
		Pages:         result.Pages,
		Beneficiaries: result.Beneficiaries,
		Entries:       result.Entries,
		GrandTotal:    result.GrandTotal,
		AmountInWords: result.AmountInWords,
		Skipped:       toSkippedResponse(result.Skipped),
		Message:       result.Message,
	}
}

func toPreviewResponse(p *transferorder.Preview) PreviewResponse {
	resp := PreviewResponse{
		Kind:          string(p.Request.Kind),
		Format:        string(p.Request.Format),
		Year:          p.Request.Year,
		Month:         p.Request.Month,
		FileName:      p.FileName,
		ExportEnabled: p.Enabled,
		Beneficiaries: len(p.Aggregation.Groups),
		Entries:       p.Aggregation.EntryCount(),
		Pages:         len(p.Plan.Pages),
		GrandTotal:    p.Plan.GrandTotal.StringFixed(2),
		AmountInWords: p.Plan.AmountInWords,
		Rows:          make([]PreviewRow, 0, p.Plan.RowCount()),
		Skipped:       toSkippedResponse(p.Aggregation.Skipped),
	}

	for _, page := range p.Plan.Pages {
		for _, row := range page.Rows {
			resp.Rows = append(resp.Rows, toPreviewRow(page.Number, row))
		}
	}
	return resp
}

func toPreviewRow(page int, row payroll.ReportRow) PreviewRow {
	switch r := row.(type) {
	case payroll.DataRow:
		return PreviewRow{
			Page:        page,
			Type:        "data",
			Beneficiary: r.Entry.BeneficiaryName,
			RIB:         r.Entry.RIB,
			Bank:        r.Entry.BankName,
			FiscalYear:  r.Entry.FiscalYear,
			Period:      r.Period,
			Amount:      r.Amount().StringFixed(2),
		}
	case payroll.SubtotalRow:
		return PreviewRow{
			Page:        page,
			Type:        "subtotal",
			Beneficiary: r.Aggregate.BeneficiaryName,
			RIB:         r.Aggregate.RIB,
			Bank:        r.Aggregate.BankName,
			Period:      r.Period,
			Amount:      r.Amount().StringFixed(2),
		}
	case payroll.CarryForwardRow:
		rowType := "carry_in"
		if r.Label == payroll.LabelCarryOut {
			rowType = "carry_out"
		}
		return PreviewRow{Page: page, Type: rowType, Label: r.Label, Amount: r.Amount.StringFixed(2)}
	case payroll.GrandTotalRow:
		return PreviewRow{Page: page, Type: "total", Label: r.AmountInWords, Amount: r.Amount.StringFixed(2)}
	}
	return PreviewRow{Page: page, Type: "unknown"}
}

func toExportRunResponse(run *models.ExportRun) ExportRunResponse {
	return ExportRunResponse{
		ID:            run.ID,
		Kind:          run.Kind,
		Format:        run.Format,
		Year:          run.Year,
		Month:         run.Month,
		Search:        run.Search,
		Status:        run.Status,
		FileName:      run.FileName,
		Location:      run.Location,
		Template:      run.TemplateName,
		Beneficiaries: run.Beneficiaries,
		Entries:       run.Entries,
		Skipped:       run.Skipped,
		Pages:         run.Pages,
		GrandTotal:    run.GrandTotal.StringFixed(2),
		Error:         run.ErrorMessage,
		CreatedAt:     run.CreatedAt.UTC().Format(time.RFC3339),
	}
}
