package transferorder

import (
	"fmt"
	"strings"

	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/storage"
)

// Kind is the document kind of a transfer order
type Kind string

const (
	KindPayment Kind = "payment" // monthly payments, "OV"
	KindRappel  Kind = "rappel"  // back-pay, "OV-RAP"
)

// Kinds lists every supported kind
var Kinds = []Kind{KindPayment, KindRappel}

// ParseKind parses a kind name
func ParseKind(s string) (Kind, error) {
	name := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds {
		if k == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want %s)", ErrUnknownKind, s, KindNames())
}

// KindNames returns the supported kind names separated by " or "
func KindNames() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, " or ")
}

// EntryKind maps the document kind to the engine entry kind
func (k Kind) EntryKind() payroll.EntryKind {
	if k == KindRappel {
		return payroll.EntryKindBackPay
	}
	return payroll.EntryKindPayment
}

// Format is the output document format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat parses a format name, defaulting to xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FileType returns the storage file type for the format
func (f Format) FileType() storage.FileType {
	if f == FormatPDF {
		return storage.FileTypePDF
	}
	return storage.FileTypeExcel
}
