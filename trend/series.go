package trend

import (
	"errors"
	"strings"
	"time"

	"github.com/robotomize/cbarates/provider"
	"github.com/shopspring/decimal"
)

const DefaultWindow = 7

var ErrNoData = errors.New("no quotations to analyze")

// Point is a row of the series. Avg is the mean of the rates of the window ending at the point,
// HasAvg is false for the first window-1 points
type Point struct {
	Date   time.Time
	Rate   decimal.Decimal
	Avg    decimal.Decimal
	HasAvg bool
}

// Series drops empty records and records with an unparsable date, keeps the records of code (all records
// when code is blank) in their order and computes the trailing moving average over window rows
func Series(records []provider.Record, code string, window int) ([]Point, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	points := make([]Point, 0, len(records))
	for _, rec := range records {
		if rec.Empty() {
			continue
		}

		if code != "" && !strings.EqualFold(rec.Currency, code) {
			continue
		}

		date, err := time.Parse(provider.DateLayout, rec.Date)
		if err != nil {
			continue
		}

		points = append(points, Point{Date: date, Rate: rec.Quote.Rate})
	}

	if len(points) == 0 {
		return nil, ErrNoData
	}

	size := decimal.NewFromInt(int64(window))
	sum := decimal.Zero
	for i := range points {
		sum = sum.Add(points[i].Rate)
		if i >= window {
			sum = sum.Sub(points[i-window].Rate)
		}

		if i >= window-1 {
			points[i].Avg = sum.Div(size)
			points[i].HasAvg = true
		}
	}

	return points, nil
}

// Bounds returns the first and the last date of the series
func Bounds(points []Point) (time.Time, time.Time) {
	var first, last time.Time
	for i, p := range points {
		if i == 0 || p.Date.Before(first) {
			first = p.Date
		}

		if i == 0 || p.Date.After(last) {
			last = p.Date
		}
	}

	return first, last
}
