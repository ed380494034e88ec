package provider

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a quotation published by the bank: Rate for Amount units of the currency and the
// Difference with the previous quotation
type Quote struct {
	Amount     decimal.Decimal
	Rate       decimal.Decimal
	Difference decimal.Decimal
}

// Record is the result of one query. A record is either complete (Quote is set) or empty
type Record struct {
	Date     string
	Currency string
	Quote    *Quote
}

// NewRecord returns a complete record
func NewRecord(date time.Time, currency string, quote Quote) Record {
	return Record{
		Date:     date.Format(DateLayout),
		Currency: currency,
		Quote:    &quote,
	}
}

// NewEmptyRecord returns a record without quotation for the queried date and code
func NewEmptyRecord(date time.Time, code string) Record {
	return Record{
		Date:     date.Format(DateLayout),
		Currency: code,
	}
}

func (r Record) Empty() bool {
	return r.Quote == nil
}
