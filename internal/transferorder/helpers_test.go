package transferorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/repository"
	"github.com/garyjia/resident-payroll/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

func paymentEntry(id int64, name, amount string) payroll.RawEntry {
	return payroll.RawEntry{
		Kind:            payroll.EntryKindPayment,
		BeneficiaryID:   id,
		BeneficiaryName: name,
		BankName:        "CPA",
		RIB:             "00400123456789012345",
		Amount:          amount,
		Date:            "2024-03-28",
	}
}

func rappelEntry(id int64, name, amount string, days int) payroll.RawEntry {
	e := paymentEntry(id, name, amount)
	e.Kind = payroll.EntryKindBackPay
	e.DurationDays = intPtr(days)
	e.FiscalYear = 2023
	return e
}

// templateData builds a blank workbook with the sheet the layout of kind expects
func templateData(t *testing.T, kind Kind) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", layoutFor(kind).Sheet))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testTemplate(t *testing.T, kind Kind) *Template {
	t.Helper()
	data := templateData(t, kind)
	return &Template{Kind: kind, Name: TemplateFileName(kind), Version: contentVersion(data), Data: data}
}

// planFor aggregates entries and plans them with the real French speller
func planFor(t *testing.T, entries []payroll.RawEntry, geometry payroll.PlanOptions) *payroll.Plan {
	t.Helper()

	speller, err := payroll.NewNumeralSpeller("fr")
	require.NoError(t, err)

	agg := payroll.Aggregate(entries)
	plan, err := payroll.PlanPages(agg.Rows, geometry, speller)
	require.NoError(t, err)
	return plan
}

// fakeSource serves fixed entries per kind. When release is set, Fetch blocks
// until it is closed.
type fakeSource struct {
	entries map[Kind][]payroll.RawEntry
	dates   map[Kind][]string
	err     error
	release chan struct{}

	calls      atomic.Int32
	lastFilter repository.Filter
	mu         sync.Mutex
}

func (s *fakeSource) Fetch(ctx context.Context, kind Kind, filter repository.Filter) ([]payroll.RawEntry, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastFilter = filter
	s.mu.Unlock()

	if s.release != nil {
		<-s.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[kind], nil
}

func (s *fakeSource) Dates(ctx context.Context, kind Kind) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.dates[kind], nil
}

type fakeTemplates struct {
	t   *testing.T
	err error
}

func (l *fakeTemplates) Load(kind Kind) (*Template, error) {
	if l.err != nil {
		return nil, l.err
	}
	return testTemplate(l.t, kind), nil
}

// fakeRenderer captures the document it renders
type fakeRenderer struct {
	format   Format
	template bool
	err      error

	mu  sync.Mutex
	doc *Document
}

func (r *fakeRenderer) Format() Format { return r.format }

func (r *fakeRenderer) Geometry() payroll.PlanOptions {
	return payroll.PlanOptions{PageCapacity: 200, RowHeight: 10, HeaderHeight: 20, ContinuationHeaderHeight: 10}
}

func (r *fakeRenderer) NeedsTemplate() bool { return r.template }

func (r *fakeRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	r.mu.Lock()
	r.doc = doc
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []byte("rendered " + doc.Plan.GrandTotal.StringFixed(2)), nil
}

func (r *fakeRenderer) lastDocument() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// memStorage keeps saved documents in memory
type memStorage struct {
	err error

	mu    sync.Mutex
	files map[string][]byte
}

func (s *memStorage) Save(ctx context.Context, name string, content []byte, fileType storage.FileType) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[name] = content
	return "mem://" + name, nil
}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

type memRuns struct {
	err error

	mu   sync.Mutex
	runs []*models.ExportRun
}

func (r *memRuns) Create(ctx context.Context, run *models.ExportRun) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRuns) List(ctx context.Context, limit int) ([]*models.ExportRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ExportRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

func (r *memRuns) GetByID(ctx context.Context, id string) (*models.ExportRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, nil
}

func (r *memRuns) all() []*models.ExportRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ExportRun(nil), r.runs...)
}

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nopLogger() *zap.Logger { return zap.NewNop() }
