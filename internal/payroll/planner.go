package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PlanOptions describes the page geometry, in row-height units of the
// target document (points for spreadsheets, millimetres for PDF)
type PlanOptions struct {
	PageCapacity             float64
	RowHeight                float64
	HeaderHeight             float64 // first page
	ContinuationHeaderHeight float64 // every following page
}

// Validate checks the geometry
func (o PlanOptions) Validate() error {
	if o.PageCapacity <= 0 {
		return fmt.Errorf("%w: page capacity must be positive, got %v", ErrInvalidGeometry, o.PageCapacity)
	}
	if o.RowHeight <= 0 {
		return fmt.Errorf("%w: row height must be positive, got %v", ErrInvalidGeometry, o.RowHeight)
	}
	if o.HeaderHeight < 0 || o.ContinuationHeaderHeight < 0 {
		return fmt.Errorf("%w: header heights must not be negative", ErrInvalidGeometry)
	}
	return nil
}

// planState is the accumulator threaded through the planner fold. Every
// transition returns a new value; row slices are never appended in place.
type planState struct {
	opts PlanOptions

	height     float64
	rows       []ReportRow
	content    int             // data and subtotal rows on the current page
	carryIn    decimal.Decimal // running total entering the current page
	pageAmount decimal.Decimal // data amounts on the current page
	grand      decimal.Decimal // subtotal rows only
	pages      []Page
}

func newPlanState(opts PlanOptions) planState {
	return planState{
		opts:       opts,
		height:     opts.HeaderHeight,
		carryIn:    decimal.Zero,
		pageAmount: decimal.Zero,
		grand:      decimal.Zero,
	}
}

// running is the cumulative amount printed so far
func (s planState) running() decimal.Decimal {
	return s.carryIn.Add(s.pageAmount)
}

// fits reports whether n more rows plus the page's closing row fit
func (s planState) fits(n int) bool {
	return s.height+float64(n+1)*s.opts.RowHeight <= s.opts.PageCapacity
}

// fitsFreshPage reports whether n rows fit on an empty continuation page
func (s planState) fitsFreshPage(n int) bool {
	// carry-in row + n rows + closing row
	return s.opts.ContinuationHeaderHeight+float64(n+2)*s.opts.RowHeight <= s.opts.PageCapacity
}

func (s planState) appendRow(row ReportRow) planState {
	rows := make([]ReportRow, len(s.rows), len(s.rows)+1)
	copy(rows, s.rows)
	s.rows = append(rows, row)
	s.height += s.opts.RowHeight
	return s
}

func (s planState) place(row ReportRow) planState {
	s = s.appendRow(row)
	s.content++
	switch r := row.(type) {
	case DataRow:
		s.pageAmount = s.pageAmount.Add(r.Amount())
	case SubtotalRow:
		s.grand = s.grand.Add(r.Amount())
	}
	return s
}

func (s planState) closePage(last ReportRow) planState {
	s = s.appendRow(last)
	pages := make([]Page, len(s.pages), len(s.pages)+1)
	copy(pages, s.pages)
	s.pages = append(pages, Page{
		Number:     len(s.pages) + 1,
		Rows:       s.rows,
		Height:     s.height,
		CarryIn:    s.carryIn,
		PageAmount: s.pageAmount,
	})
	return s
}

func (s planState) breakPage() planState {
	carry := s.running()
	s = s.closePage(CarryForwardRow{Amount: carry, Label: LabelCarryOut})

	s.rows = nil
	s.content = 0
	s.height = s.opts.ContinuationHeaderHeight
	s.carryIn = carry
	s.pageAmount = decimal.Zero
	return s.appendRow(CarryForwardRow{Amount: carry, Label: LabelCarryIn})
}

// placeBlock lays out one beneficiary block. The block moves to a new page
// when it does not fit on the current one. A block taller than an empty
// continuation page also starts a new page, then is split at row granularity.
func (s planState) placeBlock(block []ReportRow) planState {
	if s.fits(len(block)) {
		for _, row := range block {
			s = s.place(row)
		}
		return s
	}

	if s.content > 0 && s.fitsFreshPage(len(block)) {
		s = s.breakPage()
		for _, row := range block {
			s = s.place(row)
		}
		return s
	}

	if s.content > 0 {
		s = s.breakPage()
	}

	for _, row := range block {
		// A page always receives at least one row, even if it overflows.
		if !s.fits(1) && s.content > 0 {
			s = s.breakPage()
		}
		s = s.place(row)
	}
	return s
}

// PlanPages lays out aggregated rows on fixed-capacity pages. Breaks fall on
// beneficiary block boundaries, with one exception: a block taller than an
// empty continuation page starts on a new page and is split at row
// granularity, since no page can hold it whole. Each break is marked by a
// "TOTAL A REPORTER" row and the next page opens with a "TOTAL REPORTE" row
// carrying the same amount. The last page ends with the grand total, which
// sums subtotal rows only, spelled out by speller.
func PlanPages(rows []ReportRow, opts PlanOptions, speller Speller) (*Plan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if speller == nil {
		return nil, fmt.Errorf("nil speller")
	}

	blocks, err := splitBlocks(rows)
	if err != nil {
		return nil, err
	}

	state := newPlanState(opts)
	for _, block := range blocks {
		state = state.placeBlock(block)
	}

	words, err := speller.Spell(state.grand)
	if err != nil {
		return nil, fmt.Errorf("failed to spell grand total %s: %w", state.grand.StringFixed(2), err)
	}
	state = state.closePage(GrandTotalRow{Amount: state.grand, AmountInWords: words})

	return &Plan{
		Pages:         state.pages,
		GrandTotal:    state.grand,
		AmountInWords: words,
	}, nil
}

// splitBlocks cuts the row sequence after every subtotal row. Trailing data
// rows without a subtotal form a final block.
func splitBlocks(rows []ReportRow) ([][]ReportRow, error) {
	var blocks [][]ReportRow
	var current []ReportRow

	for i, row := range rows {
		switch row.(type) {
		case DataRow:
			current = append(current, row)
		case SubtotalRow:
			current = append(current, row)
			blocks = append(blocks, current)
			current = nil
		case CarryForwardRow, GrandTotalRow:
			return nil, fmt.Errorf("%w: %T at index %d", ErrUnexpectedRow, row, i)
		default:
			return nil, fmt.Errorf("%w: %T at index %d", ErrUnexpectedRow, row, i)
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks, nil
}
