package main

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/robotomize/cbarates"
	"github.com/robotomize/cbarates/provider/httputil"
)

const bom = "\xef\xbb\xbf"

// bankHandler answers 500 for 2024-05-02 and 502 for EUR
func bankHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/exchangerates.asmx", func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			Body struct {
				Request struct {
					Date string `xml:"date"`
					ISO  string `xml:"ISO"`
				} `xml:"ExchangeRatesByDateByISO"`
			} `xml:"Body"`
		}

		if err := xml.NewDecoder(r.Body).Decode(&envelope); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		req := envelope.Body.Request
		switch {
		case req.ISO == "EUR":
			w.WriteHeader(http.StatusBadGateway)
			return
		case req.Date == "2024-05-02T00:00:00":
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ExchangeRatesByDateByISOResponse xmlns="http://www.cba.am/"><ExchangeRatesByDateByISOResult>
<CurrentDate>%s</CurrentDate><Rates><ExchangeRate><ISO>%s</ISO><Amount>1</Amount><Rate>387.5</Rate><Difference>-0.25</Difference></ExchangeRate></Rates>
</ExchangeRatesByDateByISOResult></ExchangeRatesByDateByISOResponse></soap:Body></soap:Envelope>`, req.Date, req.ISO)
	})

	return mux
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}

	return t
}

func TestRealMain(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(bankHandler())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL + "/exchangerates.asmx")
	if err != nil {
		t.Fatalf("unable to parse url: %v", err)
	}

	testCases := []struct {
		name             string
		codes            []string
		abort            bool
		expectedProgress string
		expectedFile     string
		err              error
	}{
		{
			name:             "test_usd_with_missing_day",
			codes:            []string{"USD"},
			expectedProgress: "+ 2024-05-01 USD\n- 2024-05-02 USD\n+ 2024-05-03 USD\n",
			expectedFile: bom + "date;currency;amount;rate;difference\n" +
				"2024-05-01;USD;1;387,5;-0,25\n" +
				"2024-05-02;USD;;;\n" +
				"2024-05-03;USD;1;387,5;-0,25\n",
		},
		{
			name:             "test_failed_pairs_are_kept",
			codes:            []string{"USD", "EUR"},
			expectedProgress: "+ 2024-05-01 USD\n- 2024-05-01 EUR\n- 2024-05-02 USD\n- 2024-05-02 EUR\n+ 2024-05-03 USD\n- 2024-05-03 EUR\n",
			expectedFile: bom + "date;currency;amount;rate;difference\n" +
				"2024-05-01;USD;1;387,5;-0,25\n" +
				"2024-05-01;EUR;;;\n" +
				"2024-05-02;USD;;;\n" +
				"2024-05-02;EUR;;;\n" +
				"2024-05-03;USD;1;387,5;-0,25\n" +
				"2024-05-03;EUR;;;\n",
			err: httputil.ErrStatusCode,
		},
		{
			name:             "test_abort_saves_prefix",
			codes:            []string{"USD", "EUR"},
			abort:            true,
			expectedProgress: "+ 2024-05-01 USD\n- 2024-05-01 EUR\n",
			expectedFile: bom + "date;currency;amount;rate;difference\n" +
				"2024-05-01;USD;1;387,5;-0,25\n",
			err: httputil.ErrStatusCode,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			progress := bytes.NewBuffer(nil)
			opts := runOptions{
				endpoint: u,
				rng:      cbarates.Range{Start: date("2024-05-01"), End: date("2024-05-03"), Codes: tc.codes},
				dir:      dir,
				workers:  1,
				timeout:  10 * time.Second,
				abort:    tc.abort,
				progress: progress,
			}

			err := realMain(context.Background(), opts)
			if !errors.Is(err, tc.err) {
				t.Errorf("mismatch error, want %v, got %v", tc.err, err)
			}

			if diff := cmp.Diff(tc.expectedProgress, progress.String()); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}

			name := "usd_2024-05-01_2024-05-03.csv"
			if len(tc.codes) == 2 {
				name = "usd_eur_2024-05-01_2024-05-03.csv"
			}

			b, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("read file: %v", err)
			}

			if diff := cmp.Diff(tc.expectedFile, string(b)); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestRealMain_NoCodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := runOptions{
		endpoint: &url.URL{Scheme: "http", Host: "127.0.0.1:1", Path: "/exchangerates.asmx"},
		rng:      cbarates.Range{Start: date("2024-05-01"), End: date("2024-05-03")},
		dir:      dir,
		workers:  1,
		timeout:  time.Second,
	}

	if err := realMain(context.Background(), opts); !errors.Is(err, errNoCodes) {
		t.Errorf("mismatch error, want %v, got %v", errNoCodes, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	if diff := cmp.Diff(0, len(entries)); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestUnknownCodes(t *testing.T) {
	t.Parallel()

	got := unknownCodes([]string{"USD", "XYZ", "EUR", "ABC"}, []string{"EUR", "USD", "RUB"})
	if diff := cmp.Diff([]string{"XYZ", "ABC"}, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}
