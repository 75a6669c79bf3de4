package transferorder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exporterFixture struct {
	exporter  *Exporter
	source    *fakeSource
	templates *fakeTemplates
	renderer  *fakeRenderer
	storage   *memStorage
	runs      *memRuns
}

func newExporterFixture(t *testing.T, entries map[Kind][]payroll.RawEntry) *exporterFixture {
	t.Helper()

	speller, err := payroll.NewNumeralSpeller("fr")
	require.NoError(t, err)

	fx := &exporterFixture{
		source:    &fakeSource{entries: entries},
		templates: &fakeTemplates{t: t},
		renderer:  &fakeRenderer{format: FormatPDF},
		storage:   &memStorage{},
		runs:      &memRuns{},
	}

	fx.exporter, err = NewExporter(Dependencies{
		Source:    fx.source,
		Templates: fx.templates,
		Renderers: []Renderer{
			NewExcelRenderer(DefaultExcelGeometry(), nopLogger()),
			fx.renderer,
		},
		Speller: speller,
		Storage: fx.storage,
		Runs:    fx.runs,
		Mentions: map[Kind]string{
			KindRappel: "RAPPEL DE L'INDEMNITE DE FONCTION DES MEDECINS RESIDENTS - {period}",
		},
		Logger: nopLogger(),
	})
	require.NoError(t, err)
	return fx
}

func marchPayments() map[Kind][]payroll.RawEntry {
	return map[Kind][]payroll.RawEntry{
		KindPayment: {
			paymentEntry(1, "Dupont Ali", "100.00"),
			paymentEntry(1, "Dupont Ali", "250.50"),
			paymentEntry(2, "Benali Sara", "300"),
		},
		KindRappel: {
			rappelEntry(1, "Dupont Ali", "1200", 395),
		},
	}
}

func TestNewExporter_Validation(t *testing.T) {
	speller, err := payroll.NewNumeralSpeller("fr")
	require.NoError(t, err)

	_, err = NewExporter(Dependencies{Speller: speller, Storage: &memStorage{}, Renderers: []Renderer{&fakeRenderer{format: FormatPDF}}})
	assert.Error(t, err, "source is required")

	_, err = NewExporter(Dependencies{Source: &fakeSource{}, Speller: speller, Storage: &memStorage{}})
	assert.Error(t, err, "a renderer is required")

	_, err = NewExporter(Dependencies{
		Source:    &fakeSource{},
		Speller:   speller,
		Storage:   &memStorage{},
		Renderers: []Renderer{&fakeRenderer{format: FormatXLSX, template: true}},
	})
	assert.Error(t, err, "template renderers need a loader")
}

func TestExporter_ExportPaymentWorkbook(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())

	result, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024, Search: " Dupont "})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, FormatXLSX, result.Format)
	assert.Equal(t, "OV Mars 2024.xlsx", result.FileName)
	assert.Equal(t, "mem://2024/OV Mars 2024.xlsx", result.Location)
	assert.Equal(t, "Fichier OV Mars 2024.xlsx généré avec succès !", result.Message)
	assert.Equal(t, "650.50", result.GrandTotal)
	assert.Equal(t, 2, result.Beneficiaries)
	assert.Equal(t, 3, result.Entries)
	assert.Equal(t, 1, result.Pages)
	assert.Empty(t, result.Skipped)
	assert.NotEmpty(t, result.Content)
	assert.NotEmpty(t, result.AmountInWords)

	// the search is trimmed and the period becomes a month range
	assert.Equal(t, "Dupont", fx.source.lastFilter.Search)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), fx.source.lastFilter.From)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), fx.source.lastFilter.To)

	runs := fx.runs.all()
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, result.ID, run.ID)
	assert.Equal(t, models.ExportStatusSucceeded, run.Status)
	assert.Equal(t, "payment", run.Kind)
	assert.Equal(t, "xlsx", run.Format)
	assert.Equal(t, "ordre_virement.xlsx", run.TemplateName)
	assert.Len(t, run.TemplateVersion, 12)
	assert.Equal(t, 2, run.Beneficiaries)
	assert.Equal(t, 3, run.Entries)
	assert.Equal(t, 1, run.Pages)
	assert.True(t, dec("650.50").Equal(run.GrandTotal))
	assert.Equal(t, result.Location, run.Location)
}

func TestExporter_ExportRappelPDF(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())

	result, err := fx.exporter.Export(context.Background(), Request{Kind: KindRappel, Format: FormatPDF, Month: 3, Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, "OV-RAP Mars 2024.pdf", result.FileName)
	assert.Equal(t, []byte("rendered 1200.00"), result.Content)

	doc := fx.renderer.lastDocument()
	require.NotNil(t, doc)
	assert.Nil(t, doc.Template)
	assert.Equal(t, "RAPPEL DE L'INDEMNITE DE FONCTION DES MEDECINS RESIDENTS - Mars 2024", doc.Mention)
	assert.True(t, dec("1200").Equal(doc.Plan.GrandTotal))

	runs := fx.runs.all()
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].TemplateName)
}

func TestExporter_SkippedEntriesAreReported(t *testing.T) {
	entries := marchPayments()
	entries[KindPayment] = append(entries[KindPayment], paymentEntry(3, "Kaci Yanis", "abc"))
	fx := newExporterFixture(t, entries)

	result, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "Kaci Yanis", result.Skipped[0].BeneficiaryName)
	assert.Equal(t, "Fichier OV Mars 2024.xlsx généré avec succès ! 1 entrée invalide a été ignorée.", result.Message)
	assert.Equal(t, "650.50", result.GrandTotal)
	assert.Equal(t, 1, fx.runs.all()[0].Skipped)
}

func TestCompletionMessage(t *testing.T) {
	assert.Equal(t, "Fichier a.xlsx généré avec succès !", completionMessage("a.xlsx", 0))
	assert.Equal(t, "Fichier a.xlsx généré avec succès ! 3 entrées invalides ont été ignorées.", completionMessage("a.xlsx", 3))
}

func TestExporter_EmptyResultSet(t *testing.T) {
	fx := newExporterFixture(t, map[Kind][]payroll.RawEntry{
		KindPayment: {paymentEntry(1, "Dupont", "not a number")},
	})

	_, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.ErrorIs(t, err, ErrEmptyResultSet)

	assert.Zero(t, fx.storage.count())
	runs := fx.runs.all()
	require.Len(t, runs, 1)
	assert.Equal(t, models.ExportStatusFailed, runs[0].Status)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.NotEmpty(t, runs[0].ErrorMessage)
}

func TestExporter_RequestErrors(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown kind", Request{Kind: "salary", Month: 3, Year: 2024}, ErrUnknownKind},
		{"unknown format", Request{Kind: KindPayment, Format: "docx", Month: 3, Year: 2024}, ErrUnknownFormat},
		{"month zero", Request{Kind: KindPayment, Month: 0, Year: 2024}, ErrInvalidPeriod},
		{"month thirteen", Request{Kind: KindPayment, Month: 13, Year: 2024}, ErrInvalidPeriod},
		{"missing year", Request{Kind: KindPayment, Month: 3}, ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.exporter.Export(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, fx.source.calls.Load())
	assert.Empty(t, fx.runs.all())
}

func TestExporter_DisabledFormat(t *testing.T) {
	speller, err := payroll.NewNumeralSpeller("fr")
	require.NoError(t, err)

	exporter, err := NewExporter(Dependencies{
		Source:    &fakeSource{entries: marchPayments()},
		Renderers: []Renderer{&fakeRenderer{format: FormatPDF}},
		Speller:   speller,
		Storage:   &memStorage{},
	})
	require.NoError(t, err)

	_, err = exporter.Export(context.Background(), Request{Kind: KindPayment, Format: FormatXLSX, Month: 3, Year: 2024})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExporter_TemplateUnavailable(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	fx.templates.err = errBoom

	_, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.ErrorIs(t, err, ErrTemplateUnavailable)

	assert.Zero(t, fx.storage.count())
	require.Len(t, fx.runs.all(), 1)
	assert.Equal(t, models.ExportStatusFailed, fx.runs.all()[0].Status)
}

func TestExporter_WriteFailure(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	fx.storage.err = errBoom

	_, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Format: FormatPDF, Month: 3, Year: 2024})
	require.ErrorIs(t, err, ErrWriteFailure)
	assert.Contains(t, err.Error(), "OV Mars 2024.pdf")
}

func TestExporter_SourceFailure(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	fx.source.err = errBoom

	_, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	assert.ErrorIs(t, err, errBoom)
}

func TestExporter_HistoryFailureDoesNotFailExport(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	fx.runs.err = errBoom

	result, err := fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.storage.count())
	assert.NotEmpty(t, result.ID)
}

func TestExporter_CoalescesConcurrentRequests(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	fx.source.release = make(chan struct{})

	const callers = 5
	results := make([]*Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.exporter.Export(context.Background(), Request{Kind: KindPayment, Format: FormatPDF, Month: 3, Year: 2024})
		}(i)
	}

	require.Eventually(t, func() bool { return fx.source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// let the other callers join the in-flight export
	time.Sleep(100 * time.Millisecond)
	close(fx.source.release)
	wg.Wait()

	assert.Equal(t, int32(1), fx.source.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Len(t, fx.runs.all(), 1)
}

func TestExporter_CoalescedCallerOutlivesCanceledCaller(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	fx.source.release = make(chan struct{})
	req := Request{Kind: KindPayment, Format: FormatPDF, Month: 3, Year: 2024}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()

	firstErr := make(chan error, 1)
	go func() {
		_, err := fx.exporter.Export(firstCtx, req)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return fx.source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		result *Result
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		result, err := fx.exporter.Export(context.Background(), req)
		second <- outcome{result, err}
	}()
	// let the second caller join the in-flight export
	time.Sleep(100 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller is still waiting")
	}

	close(fx.source.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "650.50", got.result.GrandTotal)
	assert.Equal(t, int32(1), fx.source.calls.Load())
	assert.Equal(t, 1, fx.storage.count())
	require.Len(t, fx.runs.all(), 1)
	assert.Equal(t, got.result.ID, fx.runs.all()[0].ID)
}

func TestExporter_CanceledBeforeStart(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.exporter.Export(ctx, Request{Kind: KindPayment, Format: FormatPDF, Month: 3, Year: 2024})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fx.source.calls.Load())
	assert.Empty(t, fx.runs.all())
}

func TestExporter_Preview(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())

	preview, err := fx.exporter.Preview(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.NoError(t, err)

	assert.True(t, preview.Enabled)
	assert.Equal(t, "OV Mars 2024.xlsx", preview.FileName)
	assert.Len(t, preview.Aggregation.Groups, 2)
	assert.True(t, dec("650.50").Equal(preview.Plan.GrandTotal))

	// nothing is rendered or stored
	assert.Zero(t, fx.storage.count())
	assert.Empty(t, fx.runs.all())

	pdfPreview, err := fx.exporter.Preview(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024, Format: FormatPDF})
	require.NoError(t, err)
	assert.True(t, pdfPreview.Enabled)
	assert.Equal(t, "OV Mars 2024.pdf", pdfPreview.FileName)

	fx.source.entries = nil
	empty, err := fx.exporter.Preview(context.Background(), Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.NoError(t, err)
	assert.False(t, empty.Enabled)
	assert.True(t, empty.Plan.GrandTotal.IsZero())
}

func TestExporter_Periods(t *testing.T) {
	fx := newExporterFixture(t, nil)
	fx.source.dates = map[Kind][]string{
		KindPayment: {"2023-12-01", "2024-03-28", "2024-01-15", "garbage", "2024-03-02", "2024-03-28T10:00:00Z"},
	}

	periods, err := fx.exporter.Periods(context.Background(), KindPayment)
	require.NoError(t, err)

	assert.Equal(t, []int{2024, 2023}, periods.Years)
	assert.Equal(t, []PeriodOption{
		{Year: 2024, Month: 3, Label: "Mars 2024"},
		{Year: 2024, Month: 1, Label: "Janvier 2024"},
		{Year: 2023, Month: 12, Label: "Décembre 2023"},
	}, periods.Months)

	empty, err := fx.exporter.Periods(context.Background(), KindRappel)
	require.NoError(t, err)
	assert.Empty(t, empty.Years)
	assert.Empty(t, empty.Months)

	_, err = fx.exporter.Periods(context.Background(), Kind("salary"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestExporter_History(t *testing.T) {
	fx := newExporterFixture(t, marchPayments())
	ctx := context.Background()

	_, err := fx.exporter.Export(ctx, Request{Kind: KindPayment, Month: 3, Year: 2024})
	require.NoError(t, err)
	_, err = fx.exporter.Export(ctx, Request{Kind: KindRappel, Format: FormatPDF, Month: 3, Year: 2024})
	require.NoError(t, err)

	history, err := fx.exporter.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "rappel", history[0].Kind)
	assert.Equal(t, "payment", history[1].Kind)
}
