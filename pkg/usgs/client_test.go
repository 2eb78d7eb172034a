package usgs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleResponse = `{
  "value": {
    "timeSeries": [
      {
        "sourceInfo": {
          "siteName": "SHOAL CREEK AT IRON CITY, TN",
          "siteCode": [{"value": "03588500"}]
        },
        "values": [
          {
            "value": [
              {"value": "432", "dateTime": "2024-06-01T13:45:00.000-05:00"}
            ]
          }
        ]
      },
      {
        "sourceInfo": {
          "siteName": "SWAN CREEK NEAR ATHENS, AL",
          "siteCode": [{"value": "03577225"}]
        },
        "values": [
          {"value": []}
        ]
      }
    ]
  }
}`

func TestFetchDischarge(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	readings, err := client.FetchDischarge(context.Background(), []string{"03588500", "03577225"})
	if err != nil {
		t.Fatalf("FetchDischarge failed: %v", err)
	}

	// The offline site has no data points and is skipped, not an error.
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}

	r := readings[0]
	if r.SiteCode != "03588500" {
		t.Errorf("expected site 03588500, got %q", r.SiteCode)
	}
	if r.Discharge != 432 {
		t.Errorf("expected discharge 432, got %v", r.Discharge)
	}
	want := time.Date(2024, 6, 1, 18, 45, 0, 0, time.UTC)
	if !r.RecordedAt.Equal(want) {
		t.Errorf("expected UTC timestamp %v, got %v", want, r.RecordedAt)
	}
	if r.RecordedAt.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", r.RecordedAt.Location())
	}

	for _, param := range []string{"parameterCd=00060", "sites=03588500%2C03577225", "format=json"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("expected query to contain %q, got %q", param, gotQuery)
		}
	}
}

func TestFetchDischargeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.FetchDischarge(context.Background(), []string{"03588500"}); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestFetchDischargeNoSites(t *testing.T) {
	client := NewClient()
	if _, err := client.FetchDischarge(context.Background(), nil); err == nil {
		t.Fatal("expected error when no sites are requested")
	}
}

func TestFetchDischargeBadValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"value":{"timeSeries":[{"sourceInfo":{"siteName":"X","siteCode":[{"value":"1"}]},"values":[{"value":[{"value":"Ice","dateTime":"2024-06-01T13:45:00.000-05:00"}]}]}]}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.FetchDischarge(context.Background(), []string{"1"}); err == nil {
		t.Fatal("expected error for non-numeric discharge value")
	}
}
