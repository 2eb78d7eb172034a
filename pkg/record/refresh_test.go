package record

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/store/models"
	"github.com/hollandale/creekrun/pkg/usgs"
)

type fakeWriter struct {
	got []*models.Reading
	err error
}

func (f *fakeWriter) Upsert(_ context.Context, readings []*models.Reading) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.got = append(f.got, readings...)
	return len(readings), nil
}

const ivResponse = `{
  "value": {
    "timeSeries": [
      {
        "sourceInfo": {
          "siteName": "SHOAL CREEK AT IRON CITY, TN",
          "siteCode": [{"value": "03588500"}]
        },
        "values": [
          {"value": [{"value": "512", "dateTime": "2024-06-01T14:00:00.000-05:00"}]}
        ]
      }
    ]
  }
}`

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(ivResponse))
	}))
	defer srv.Close()

	writer := &fakeWriter{}
	refresher := NewRefresher(
		usgs.NewClient(usgs.WithBaseURL(srv.URL)),
		writer,
		map[string]string{"03588500": "Shoal_Creek"},
		clog.NewQuiet(),
	)

	n, err := refresher.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row written, got %d", n)
	}
	if len(writer.got) != 1 {
		t.Fatalf("expected 1 reading stored, got %d", len(writer.got))
	}

	r := writer.got[0]
	if r.SiteName != "Shoal_Creek" {
		t.Errorf("expected configured site name, got %q", r.SiteName)
	}
	if r.Discharge != 512 {
		t.Errorf("expected discharge 512, got %v", r.Discharge)
	}
}

func TestRefreshEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"value":{"timeSeries":[]}}`))
	}))
	defer srv.Close()

	writer := &fakeWriter{}
	refresher := NewRefresher(usgs.NewClient(usgs.WithBaseURL(srv.URL)), writer, nil, clog.NewQuiet())

	n, err := refresher.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n != 0 || len(writer.got) != 0 {
		t.Errorf("expected nothing stored, got %d rows", len(writer.got))
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("TEST_REFRESH_CREDS", `{"host":"db.internal","user":"creek","password":"pw","database":"hydrology"}`)

	creds, err := LoadCredentials("TEST_REFRESH_CREDS", "does-not-exist.json")
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.Host != "db.internal" || creds.Port != 5432 || creds.SSLMode != "disable" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestLoadCredentialsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"host":"h","port":5433,"user":"u","password":"p","database":"d","sslmode":"require"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	creds, err := LoadCredentials("TEST_REFRESH_CREDS_UNSET", path)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.Port != 5433 || creds.SSLMode != "require" {
		t.Errorf("unexpected credentials: %+v", creds)
	}

	cfg := creds.StoreConfig()
	if cfg.Host != "h" || cfg.Database != "d" {
		t.Errorf("unexpected store config: %+v", cfg)
	}
}

func TestLoadCredentialsMissing(t *testing.T) {
	if _, err := LoadCredentials("TEST_REFRESH_CREDS_UNSET", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error when credentials are absent")
	}
}

func TestLoadCredentialsIncomplete(t *testing.T) {
	t.Setenv("TEST_REFRESH_CREDS", `{"host":"h"}`)
	if _, err := LoadCredentials("TEST_REFRESH_CREDS", ""); err == nil {
		t.Fatal("expected error for credentials missing user and database")
	}
}
