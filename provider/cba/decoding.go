package cba

import (
	"errors"
	"strings"
	"time"

	"github.com/robotomize/cbarates/provider"
	"github.com/shopspring/decimal"
)

var (
	errDecodeToken       = errors.New("decoding of the markup failed")
	errAttributeNotValid = errors.New("attr is not valid")
)

// dailyRate is the part of the ExchangeRatesByDateByISO answer the source needs
type dailyRate struct {
	currentDate string
	rate        *XMLExchangeRate
}

// record maps the answer into a provider.Record. The bank echoes the closest date with quotations when
// the requested one has none, so a CurrentDate of another day means an empty record
func (d dailyRate) record(date time.Time, code string) provider.Record {
	if !strings.HasPrefix(d.currentDate, date.Format(provider.DateLayout)) {
		return provider.NewEmptyRecord(date, code)
	}

	if d.rate == nil {
		return provider.NewEmptyRecord(date, code)
	}

	quote, err := d.rate.quote()
	if err != nil {
		return provider.NewEmptyRecord(date, code)
	}

	return provider.NewRecord(date, strings.TrimSpace(d.rate.ISO), quote)
}

func (x XMLExchangeRate) quote() (provider.Quote, error) {
	amount, err := parseDecimal(x.Amount)
	if err != nil {
		return provider.Quote{}, err
	}

	rate, err := parseDecimal(x.Rate)
	if err != nil {
		return provider.Quote{}, err
	}

	difference, err := parseDecimal(x.Difference)
	if err != nil {
		return provider.Quote{}, err
	}

	return provider.Quote{Amount: amount, Rate: rate, Difference: difference}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, errAttributeNotValid
	}

	return d, nil
}
