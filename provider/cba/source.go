package cba

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/robotomize/cbarates/internal/logging"
	"github.com/robotomize/cbarates/provider"
	"github.com/robotomize/cbarates/provider/httputil"
)

const hostname = "api.cba.am"

const soapAction = cbaNamespace + "ExchangeRatesByDateByISO"

// DefaultEndpoint is the ASMX service of the Central Bank of Armenia
var DefaultEndpoint = url.URL{Scheme: "http", Host: hostname, Path: "/exchangerates.asmx"}

var publishedCodes = []string{
	"USD", "EUR", "RUB", "GBP", "GEL", "CHF", "CAD", "AED", "JPY", "CNY", "AUD", "ARS", "BRL", "BYN", "CZK",
	"DKK", "EGP", "HKD", "HUF", "ILS", "INR", "IRR", "ISK", "KGS", "KRW", "KWD", "KZT", "LBP", "MDL", "MXN",
	"NOK", "PLN", "QAR", "RON", "SAR", "SEK", "SGD", "SYP", "TJS", "TMT", "TRY", "UAH", "UZS", "XDR", "XAU",
}

type fetcher struct {
	u url.URL
	httputil.SourceHTTPClient
}

var _ provider.Source = (*source)(nil)

type Option func(*source)

// WithEndpoint set the address of the exchange rates service
func WithEndpoint(u *url.URL) Option {
	return func(s *source) {
		s.client.u = *u
	}
}

func NewSource(client *http.Client, opts ...Option) *source {
	s := &source{
		client: fetcher{
			u:                DefaultEndpoint,
			SourceHTTPClient: httputil.NewHTTPClient(client),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type source struct {
	client fetcher
}

func (s *source) GetCodes() []string {
	return publishedCodes
}

// FetchByDate calls ExchangeRatesByDateByISO for the day of date. The service answers 500 when it has no
// quotation for the day, which is returned as an empty record
func (s *source) FetchByDate(ctx context.Context, date time.Time, code string) (provider.Record, error) {
	date = provider.Day(date)
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"date":     date.Format(provider.DateLayout),
		"currency": code,
	})

	body, err := encodeXML(date, code)
	if err != nil {
		return provider.Record{}, fmt.Errorf("encode: %w", err)
	}

	b, err := s.client.Post(ctx, s.client.u, requestHeader(), body)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusInternalServerError {
			logger.Debug("no quotation, service answered 500")
			return provider.NewEmptyRecord(date, code), nil
		}

		return provider.Record{}, fmt.Errorf("fetching: %w", err)
	}

	daily, err := decodeXML(b)
	if err != nil {
		return provider.Record{}, fmt.Errorf("decode: %w", err)
	}

	rec := daily.record(date, code)
	if rec.Empty() {
		logger.WithField("current_date", daily.currentDate).Debug("no quotation for the date")
	}

	return rec, nil
}

func requestHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "text/xml; charset=utf-8")
	header.Set("SOAPAction", soapAction)

	return header
}
