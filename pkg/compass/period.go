package compass

import (
	"fmt"
	"strconv"
	"strings"
)

// ReportPeriod is a reporting period as the financial-data service names it
type ReportPeriod string

const (
	PeriodQ1   ReportPeriod = "Q1"
	PeriodQ2   ReportPeriod = "Q2"
	PeriodQ3   ReportPeriod = "Q3"
	PeriodYear ReportPeriod = "YEAR"
)

// PeriodFromMonths maps the cumulative month count of a report (3, 6, 9, 12)
// to its period.
func PeriodFromMonths(months int) (ReportPeriod, error) {
	switch months {
	case 3:
		return PeriodQ1, nil
	case 6:
		return PeriodQ2, nil
	case 9:
		return PeriodQ3, nil
	case 12:
		return PeriodYear, nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unsupported month count %d", months), Value: months}
}

// ParsePeriod accepts a period name (case-insensitive) or a month count
func ParsePeriod(s string) (ReportPeriod, error) {
	switch p := ReportPeriod(strings.ToUpper(strings.TrimSpace(s))); p {
	case PeriodQ1, PeriodQ2, PeriodQ3, PeriodYear:
		return p, nil
	}

	if months, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return PeriodFromMonths(months)
	}
	return "", &ValidationError{Field: "period", Message: "unknown period", Value: s}
}

// Months returns the cumulative month count the period covers
func (p ReportPeriod) Months() int {
	switch p {
	case PeriodQ1:
		return 3
	case PeriodQ2:
		return 6
	case PeriodQ3:
		return 9
	case PeriodYear:
		return 12
	}
	return 0
}

// Valid reports whether p is a known period
func (p ReportPeriod) Valid() bool {
	return p.Months() != 0
}
