// Package transferorder builds bank transfer orders ("ordres de virement")
// from payment and back-pay records.
package transferorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/resident-payroll/internal/metrics"
	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/repository"
	"github.com/garyjia/resident-payroll/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Request selects the records of one export
type Request struct {
	Kind   Kind
	Format Format
	Month  int // 1-12
	Year   int
	Search string
}

// Validate checks the request
func (r Request) Validate() error {
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(r.Format)); err != nil {
		return err
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, r.Month)
	}
	if r.Year < 1900 || r.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, r.Year)
	}
	return nil
}

func (r Request) filter() repository.Filter {
	return repository.PeriodFilter(r.Year, r.Month, r.Search)
}

// key identifies requests over the same filtered set
func (r Request) key() string {
	return fmt.Sprintf("%s|%s|%04d-%02d|%s", r.Kind, r.Format, r.Year, r.Month, strings.ToLower(strings.TrimSpace(r.Search)))
}

// Result is a finished export
type Result struct {
	ID            string
	FileName      string
	Location      string
	Content       []byte
	Format        Format
	Pages         int
	Beneficiaries int
	Entries       int
	GrandTotal    string
	AmountInWords string
	Skipped       []payroll.SkippedEntry
	Message       string // completion message shown to the user
}

// Preview is the aggregated grid and page plan of a request, computed
// without rendering or saving anything
type Preview struct {
	Request     Request
	FileName    string
	Aggregation payroll.Aggregation
	Plan        *payroll.Plan
	Enabled     bool // false when there is nothing to export
}

// PeriodOption is one selectable month
type PeriodOption struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

// Periods lists the months that have records, newest first
type Periods struct {
	Years  []int          `json:"years"`
	Months []PeriodOption `json:"months"`
}

// Dependencies of an Exporter. Runs may be nil.
type Dependencies struct {
	Source    RecordSource
	Templates TemplateLoader
	Renderers []Renderer
	Speller   payroll.Speller
	Storage   storage.FileStorage
	Runs      ExportLog
	Mentions  map[Kind]string // closing line per kind; "{period}" is replaced by "Mars 2024"
	Logger    *zap.Logger
}

// Exporter runs transfer order exports
type Exporter struct {
	source    RecordSource
	templates TemplateLoader
	renderers map[Format]Renderer
	speller   payroll.Speller
	storage   storage.FileStorage
	runs      ExportLog
	mentions  map[Kind]string
	logger    *zap.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewExporter creates a new Exporter
func NewExporter(deps Dependencies) (*Exporter, error) {
	if deps.Source == nil || deps.Speller == nil || deps.Storage == nil {
		return nil, fmt.Errorf("exporter requires a record source, a speller and a storage")
	}
	if len(deps.Renderers) == 0 {
		return nil, fmt.Errorf("exporter requires at least one renderer")
	}

	renderers := make(map[Format]Renderer, len(deps.Renderers))
	for _, r := range deps.Renderers {
		if r.NeedsTemplate() && deps.Templates == nil {
			return nil, fmt.Errorf("renderer %s requires a template loader", r.Format())
		}
		renderers[r.Format()] = r
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Exporter{
		source:    deps.Source,
		templates: deps.Templates,
		renderers: renderers,
		speller:   deps.Speller,
		storage:   deps.Storage,
		runs:      deps.Runs,
		mentions:  deps.Mentions,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Export builds, renders and stores a transfer order. Concurrent calls for the
// same filtered set share a single run and its result. Once started, the run
// is not canceled by any caller; a caller whose ctx ends stops waiting and
// gets ctx.Err() while the run completes and is recorded.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	req, err := e.normalize(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := req.key()
	ch := e.group.DoChan(key, func() (any, error) {
		return e.export(context.WithoutCancel(ctx), req)
	})

	select {
	case <-ctx.Done():
		e.logger.Info("Caller stopped waiting for export", zap.String("key", key), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.IncCoalesced(string(req.Kind))
			e.logger.Debug("Export request coalesced", zap.String("key", key))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

func (e *Exporter) export(ctx context.Context, req Request) (*Result, error) {
	start := e.now()
	logger := e.logger.With(
		zap.String("kind", string(req.Kind)),
		zap.String("format", string(req.Format)),
		zap.Int("year", req.Year),
		zap.Int("month", req.Month))

	run := &models.ExportRun{
		ID:        uuid.NewString(),
		Kind:      string(req.Kind),
		Format:    string(req.Format),
		Month:     req.Month,
		Year:      req.Year,
		Search:    req.Search,
		CreatedAt: start.UTC(),
	}
	logger = logger.With(zap.String("export_id", run.ID))
	logger.Info("Starting transfer order export")

	result, err := e.build(ctx, req, run, logger)

	outcome := metrics.ResultSuccess
	switch {
	case errors.Is(err, ErrEmptyResultSet):
		outcome = metrics.ResultEmpty
	case err != nil:
		outcome = metrics.ResultError
	}
	metrics.ObserveExport(string(req.Kind), string(req.Format), outcome, e.now().Sub(start))

	if err != nil {
		run.Status = models.ExportStatusFailed
		run.ErrorMessage = err.Error()
		if !errors.Is(err, ErrEmptyResultSet) {
			logger.Error("Transfer order export failed", zap.Error(err))
		}
	} else {
		run.Status = models.ExportStatusSucceeded
	}
	e.record(ctx, run, logger)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Exporter) build(ctx context.Context, req Request, run *models.ExportRun, logger *zap.Logger) (*Result, error) {
	renderer := e.renderers[req.Format]

	entries, err := e.source.Fetch(ctx, req.Kind, req.filter())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", req.Kind, err)
	}

	agg := payroll.Aggregate(entries)
	run.Skipped = len(agg.Skipped)
	for _, skipped := range agg.Skipped {
		logger.Warn("Skipping malformed entry",
			zap.Int("index", skipped.Index),
			zap.String("beneficiary", skipped.BeneficiaryName),
			zap.String("reason", skipped.Reason))
	}
	metrics.AddSkipped(string(req.Kind), len(agg.Skipped))

	if len(agg.Groups) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrEmptyResultSet, req.Kind, PeriodLabel(req.Month, req.Year))
	}
	run.Beneficiaries = len(agg.Groups)
	run.Entries = agg.EntryCount()

	plan, err := payroll.PlanPages(agg.Rows, renderer.Geometry(), e.speller)
	if err != nil {
		return nil, fmt.Errorf("failed to plan pages: %w", err)
	}
	run.Pages = len(plan.Pages)
	run.GrandTotal = plan.GrandTotal

	doc := &Document{
		Kind:    req.Kind,
		Month:   req.Month,
		Year:    req.Year,
		Plan:    plan,
		Mention: e.mention(req),
	}
	if renderer.NeedsTemplate() {
		tpl, err := e.templates.Load(req.Kind)
		if err != nil {
			if !errors.Is(err, ErrTemplateUnavailable) {
				err = fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
			}
			return nil, err
		}
		doc.Template = tpl
		run.TemplateName = tpl.Name
		run.TemplateVersion = tpl.Version
	}

	content, err := renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", req.Format, err)
	}

	fileName := FileName(req.Kind, req.Format, req.Month, req.Year)
	location, err := e.storage.Save(ctx, ObjectName(req.Kind, req.Format, req.Month, req.Year), content, req.Format.FileType())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWriteFailure, fileName, err)
	}
	run.FileName = fileName
	run.Location = location

	metrics.ObservePages(string(req.Kind), len(plan.Pages))
	logger.Info("Transfer order exported",
		zap.String("file", fileName),
		zap.String("location", location),
		zap.Int("pages", len(plan.Pages)),
		zap.Int("beneficiaries", len(agg.Groups)),
		zap.Int("skipped", len(agg.Skipped)),
		zap.String("grand_total", plan.GrandTotal.StringFixed(2)))

	return &Result{
		ID:            run.ID,
		FileName:      fileName,
		Location:      location,
		Content:       content,
		Format:        req.Format,
		Pages:         len(plan.Pages),
		Beneficiaries: len(agg.Groups),
		Entries:       agg.EntryCount(),
		GrandTotal:    plan.GrandTotal.StringFixed(2),
		AmountInWords: plan.AmountInWords,
		Skipped:       agg.Skipped,
		Message:       completionMessage(fileName, len(agg.Skipped)),
	}, nil
}

// record stores the run; history failures never fail the export
func (e *Exporter) record(ctx context.Context, run *models.ExportRun, logger *zap.Logger) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record export run", zap.Error(err))
	}
}

// Preview aggregates and plans a request without rendering it
func (e *Exporter) Preview(ctx context.Context, req Request) (*Preview, error) {
	req, err := e.normalize(req)
	if err != nil {
		return nil, err
	}

	entries, err := e.source.Fetch(ctx, req.Kind, req.filter())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", req.Kind, err)
	}

	agg := payroll.Aggregate(entries)
	plan, err := payroll.PlanPages(agg.Rows, e.renderers[req.Format].Geometry(), e.speller)
	if err != nil {
		return nil, fmt.Errorf("failed to plan pages: %w", err)
	}

	return &Preview{
		Request:     req,
		FileName:    FileName(req.Kind, req.Format, req.Month, req.Year),
		Aggregation: agg,
		Plan:        plan,
		Enabled:     len(agg.Groups) > 0,
	}, nil
}

// Periods lists the years and months that have records of kind
func (e *Exporter) Periods(ctx context.Context, kind Kind) (*Periods, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	dates, err := e.source.Dates(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s dates: %w", kind, err)
	}

	seenYears := make(map[int]bool)
	seenMonths := make(map[[2]int]bool)
	periods := &Periods{Years: []int{}, Months: []PeriodOption{}}

	for _, raw := range dates {
		t, err := payroll.ParseDate(raw)
		if err != nil {
			e.logger.Debug("Ignoring unparseable record date", zap.String("date", raw))
			continue
		}
		year, month := t.Year(), int(t.Month())
		if !seenYears[year] {
			seenYears[year] = true
			periods.Years = append(periods.Years, year)
		}
		if key := [2]int{year, month}; !seenMonths[key] {
			seenMonths[key] = true
			periods.Months = append(periods.Months, PeriodOption{Year: year, Month: month, Label: PeriodLabel(month, year)})
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(periods.Years)))
	sort.Slice(periods.Months, func(i, j int) bool {
		a, b := periods.Months[i], periods.Months[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	return periods, nil
}

// History returns the most recent export runs
func (e *Exporter) History(ctx context.Context, limit int) ([]*models.ExportRun, error) {
	if e.runs == nil {
		return []*models.ExportRun{}, nil
	}
	return e.runs.List(ctx, limit)
}

// normalize fills defaults and validates the request
func (e *Exporter) normalize(req Request) (Request, error) {
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return req, err
	}
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return req, err
	}
	req.Kind, req.Format = kind, format
	req.Search = strings.TrimSpace(req.Search)

	if err := req.Validate(); err != nil {
		return req, err
	}
	if _, ok := e.renderers[req.Format]; !ok {
		return req, fmt.Errorf("%w: %s is not enabled", ErrUnknownFormat, req.Format)
	}
	return req, nil
}

func (e *Exporter) mention(req Request) string {
	return strings.ReplaceAll(e.mentions[req.Kind], "{period}", PeriodLabel(req.Month, req.Year))
}

func completionMessage(fileName string, skipped int) string {
	msg := fmt.Sprintf("Fichier %s généré avec succès !", fileName)
	switch {
	case skipped == 1:
		msg += " 1 entrée invalide a été ignorée."
	case skipped > 1:
		msg += fmt.Sprintf(" %d entrées invalides ont été ignorées.", skipped)
	}
	return msg
}
