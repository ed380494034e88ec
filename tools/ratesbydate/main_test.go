package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRealMain(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/exchangerates.asmx", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ExchangeRatesByDateByISOResponse xmlns="http://www.cba.am/"><ExchangeRatesByDateByISOResult>
<CurrentDate>2025-05-01T00:00:00</CurrentDate><Rates><ExchangeRate><ISO>USD</ISO><Amount>1</Amount><Rate>390.5</Rate><Difference>0.3</Difference></ExchangeRate></Rates>
</ExchangeRatesByDateByISOResult></ExchangeRatesByDateByISOResponse></soap:Body></soap:Envelope>`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := url.Parse(srv.URL + "/exchangerates.asmx")
	if err != nil {
		t.Fatalf("unable to parse url: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "data")
	d := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	fileName, err := realMain(context.Background(), u, d, []string{"USD"}, 10*time.Second, dir, defaultFileName)
	if err != nil {
		t.Fatalf("real main: %v", err)
	}

	b, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	expected := "\xef\xbb\xbfdate;currency;amount;rate;difference\n2025-05-01;USD;1;390,5;0,3\n"
	if diff := cmp.Diff(expected, string(b)); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	// unchanged content is reported as a warning
	if _, err := realMain(context.Background(), u, d, []string{"USD"}, 10*time.Second, dir, defaultFileName); err != nil {
		t.Errorf("rewrite: %v", err)
	}
}
