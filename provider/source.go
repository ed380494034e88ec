package provider

import (
	"context"
	"time"
)

// DateLayout is the calendar date format used for queries and records
const DateLayout = "2006-01-02"

// Source is an interface for getting historical quotations from an external bank. Source takes care of
// the transport and maps every answer of the bank into a Record
//
//go:generate mockgen -source source.go -destination mock_source.go -package provider
type Source interface {
	// FetchByDate returns the quotation of the currency code for the date. The absence of a quotation is
	// an empty Record, not an error. An error means the transport failed
	FetchByDate(ctx context.Context, date time.Time, code string) (Record, error)

	// GetCodes declares the list of currency codes the source publishes
	GetCodes() []string
}

// Day truncates t to the midnight of its calendar day in UTC, keeping the year, month and day of t
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
