package transferorder

import (
	"fmt"
	"path"
	"strconv"
)

var monthLabels = [...]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// MonthLabel returns the French month name, or "" when month is out of range
func MonthLabel(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthLabels[month-1]
}

// PeriodLabel returns "Mars 2024"
func PeriodLabel(month, year int) string {
	return MonthLabel(month) + " " + strconv.Itoa(year)
}

// FileName returns the document name, "OV Mars 2024.xlsx" or "OV-RAP Mars 2024.pdf"
func FileName(kind Kind, format Format, month, year int) string {
	prefix := "OV"
	if kind == KindRappel {
		prefix = "OV-RAP"
	}
	return fmt.Sprintf("%s %s.%s", prefix, PeriodLabel(month, year), format)
}

// ObjectName returns the storage name of a document, grouped by year
func ObjectName(kind Kind, format Format, month, year int) string {
	return path.Join(strconv.Itoa(year), FileName(kind, format, month, year))
}
