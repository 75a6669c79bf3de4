package transferorder

// sheetLayout is the fixed cell geometry of a template
type sheetLayout struct {
	Sheet        string
	FirstDataRow int
	SummaryTotal string // grand total, numeric
	SummaryWords string // grand total, in words
}

// Columns written by the renderer
const (
	colBeneficiary = "B"
	colReference   = "C" // RIB, or fiscal year for back-pay lines
	colDetail      = "D" // bank, or period for back-pay lines
	colAmount      = "E"
)

var layouts = map[Kind]sheetLayout{
	KindPayment: {
		Sheet:        "OV",
		FirstDataRow: 19,
		SummaryTotal: "B17",
		SummaryWords: "C17",
	},
	KindRappel: {
		Sheet:        "OV-RAP (14)",
		FirstDataRow: 19,
		SummaryTotal: "B17",
		SummaryWords: "C17",
	},
}

func layoutFor(kind Kind) sheetLayout {
	if l, ok := layouts[kind]; ok {
		return l
	}
	return layouts[KindPayment]
}
