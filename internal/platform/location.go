package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/civicwatch/herald/internal/logging"
)

const (
	// DefaultGeoURL is the IP geolocation endpoint used when none is configured.
	DefaultGeoURL = "http://ip-api.com/json/"
	// locationTimeout bounds a single position lookup.
	locationTimeout = 5 * time.Second
)

// Location modes recognised by NewLocation.
const (
	LocationModeOff    = "off"
	LocationModeGeoIP  = "geoip"
	LocationModeStatic = "static"
)

// NewLocation picks the location backend for the configured mode.
// Unknown modes resolve to the disabled backend.
func NewLocation(mode, url string, lat, lon float64, log *logging.Logger) LocationPlatform {
	switch mode {
	case LocationModeGeoIP:
		return NewGeoIPLocation(url, log)
	case LocationModeStatic:
		return NewStaticLocation(lat, lon)
	default:
		return NoLocation{}
	}
}

// GeoIPLocation resolves the device position from its public IP address.
type GeoIPLocation struct {
	URL        string
	HTTPClient *http.Client
	log        *logging.Logger
}

// NewGeoIPLocation creates a GeoIP backend. An empty url falls back to
// DefaultGeoURL.
func NewGeoIPLocation(url string, log *logging.Logger) *GeoIPLocation {
	if url == "" {
		url = DefaultGeoURL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &GeoIPLocation{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: locationTimeout,
		},
		log: log,
	}
}

func (g *GeoIPLocation) Current(ctx context.Context) (Coords, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL, nil)
	if err != nil {
		return Coords{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return Coords{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coords{}, fmt.Errorf("geolocation API error %d", resp.StatusCode)
	}

	var body struct {
		Status string  `json:"status"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coords{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return Coords{}, fmt.Errorf("geolocation lookup failed: %s", body.Status)
	}

	return Coords{Latitude: body.Lat, Longitude: body.Lon}, nil
}

// StaticLocation always reports the position it was configured with.
type StaticLocation struct {
	coords Coords
}

func NewStaticLocation(lat, lon float64) *StaticLocation {
	return &StaticLocation{coords: Coords{Latitude: lat, Longitude: lon}}
}

func (s *StaticLocation) Current(context.Context) (Coords, error) {
	return s.coords, nil
}

// NoLocation reports that no position is available.
type NoLocation struct{}

func (NoLocation) Current(context.Context) (Coords, error) {
	return Coords{}, ErrNotSupported
}
