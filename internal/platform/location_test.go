package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicwatch/herald/internal/platform"
)

func TestGeoIPLocationCurrent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","lat":51.5074,"lon":-0.1278}`))
	}))
	defer server.Close()

	loc := platform.NewGeoIPLocation(server.URL, nil)
	coords, err := loc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if coords.Latitude != 51.5074 || coords.Longitude != -0.1278 {
		t.Errorf("unexpected coords %+v", coords)
	}
}

func TestGeoIPLocationLookupFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","lat":0,"lon":0}`))
	}))
	defer server.Close()

	loc := platform.NewGeoIPLocation(server.URL, nil)
	if _, err := loc.Current(context.Background()); err == nil {
		t.Error("expected error for failed lookup status")
	}
}

func TestGeoIPLocationServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	loc := platform.NewGeoIPLocation(server.URL, nil)
	if _, err := loc.Current(context.Background()); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestStaticLocation(t *testing.T) {
	t.Parallel()

	loc := platform.NewStaticLocation(40.4168, -3.7038)
	coords, err := loc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if coords.Latitude != 40.4168 || coords.Longitude != -3.7038 {
		t.Errorf("unexpected coords %+v", coords)
	}
}

func TestNewLocationModes(t *testing.T) {
	t.Parallel()

	if _, err := platform.NewLocation(platform.LocationModeOff, "", 0, 0, nil).Current(context.Background()); err != platform.ErrNotSupported {
		t.Errorf("off mode error = %v, want ErrNotSupported", err)
	}
	if _, err := platform.NewLocation("satellite", "", 0, 0, nil).Current(context.Background()); err != platform.ErrNotSupported {
		t.Errorf("unknown mode error = %v, want ErrNotSupported", err)
	}

	coords, err := platform.NewLocation(platform.LocationModeStatic, "", 1.5, 2.5, nil).Current(context.Background())
	if err != nil {
		t.Fatalf("static mode error = %v", err)
	}
	if coords.Latitude != 1.5 || coords.Longitude != 2.5 {
		t.Errorf("unexpected static coords %+v", coords)
	}
}
