package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/platform"
)

func TestVapidKey(t *testing.T) {
	t.Parallel()

	var gotDevice string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/push/vapid-key" {
			http.NotFound(w, r)
			return
		}
		gotDevice = r.Header.Get("X-Device-ID")
		_ = json.NewEncoder(w).Encode(map[string]string{"publicKey": "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"})
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "device-1", nil)
	key, err := client.VapidKey(context.Background())
	if err != nil {
		t.Fatalf("VapidKey() error = %v", err)
	}
	if !strings.HasPrefix(key, "BEl62iUY") {
		t.Errorf("unexpected key %q", key)
	}
	if gotDevice != "device-1" {
		t.Errorf("expected X-Device-ID header, got %q", gotDevice)
	}
}

func TestSubscribePushBody(t *testing.T) {
	t.Parallel()

	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/push/subscribe" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		raw = string(data)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "device-1", nil)
	sub := &platform.Subscription{
		Endpoint: "https://relay.test/ch/abc",
		Keys:     platform.SubscriptionKeys{P256dh: "BKey", Auth: "AuthSecret"},
	}

	err := client.SubscribePush(context.Background(), sub, &platform.Coords{Latitude: 12.5, Longitude: -8.25})
	if err != nil {
		t.Fatalf("SubscribePush() error = %v", err)
	}

	var got struct {
		Subscription *platform.Subscription `json:"subscription"`
		Location     *platform.Coords       `json:"location"`
	}
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if got.Subscription == nil || got.Subscription.Endpoint != sub.Endpoint || got.Subscription.Keys.P256dh != "BKey" {
		t.Errorf("unexpected subscription in body: %s", raw)
	}
	if got.Location == nil || got.Location.Latitude != 12.5 || got.Location.Longitude != -8.25 {
		t.Errorf("unexpected location in body: %s", raw)
	}

	// Without a fix the location field must be an explicit null.
	if err := client.SubscribePush(context.Background(), sub, nil); err != nil {
		t.Fatalf("SubscribePush() without location error = %v", err)
	}
	if !strings.Contains(raw, `"location":null`) {
		t.Errorf("expected null location, got body %s", raw)
	}
}

func TestUnsubscribePush(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "device-1", nil)
	if err := client.UnsubscribePush(context.Background()); err != nil {
		t.Fatalf("UnsubscribePush() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/v1/push/subscribe" {
		t.Errorf("got %s %s, want DELETE /api/v1/push/subscribe", gotMethod, gotPath)
	}
}

func TestUpdatePushLocation(t *testing.T) {
	t.Parallel()

	var gotMethod, raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		data, _ := io.ReadAll(r.Body)
		raw = string(data)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "device-1", nil)
	if err := client.UpdatePushLocation(context.Background(), 40.4, -3.7); err != nil {
		t.Fatalf("UpdatePushLocation() error = %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("got method %s, want PATCH", gotMethod)
	}
	if raw != `{"lat":40.4,"lng":-3.7}` {
		t.Errorf("unexpected body %s", raw)
	}
}

func TestBackendErrorIsTyped(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subscription not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "device-1", nil)
	err := client.UnsubscribePush(context.Background())

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Message, "subscription not found") {
		t.Errorf("unexpected message %q", httpErr.Message)
	}
}

func TestEngagementSummaryCache(t *testing.T) {
	t.Parallel()

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/engagement/summary" {
			http.NotFound(w, r)
			return
		}
		hits++
		_, _ = w.Write([]byte(`{
			"points": 120,
			"level": 3,
			"newBadges": [{"code":"first_report","name":"First Report","points":10}],
			"badges": [
				{"code":"first_report","name":"First Report","obtained":true},
				{"code":"commentator","name":"Commentator","obtained":false}
			]
		}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "device-1", nil)
	ctx := context.Background()

	summary, err := client.EngagementSummary(ctx)
	if err != nil {
		t.Fatalf("EngagementSummary() error = %v", err)
	}
	if summary.Points != 120 || len(summary.NewBadges) != 1 || len(summary.Badges) != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if obtained := summary.ObtainedBadges(); len(obtained) != 1 || obtained[0].Code != "first_report" {
		t.Errorf("unexpected obtained badges %v", obtained)
	}

	if _, err := client.EngagementSummary(ctx); err != nil {
		t.Fatalf("cached EngagementSummary() error = %v", err)
	}
	if hits != 1 {
		t.Errorf("expected cache to absorb the second call, hits = %d", hits)
	}

	// An unrelated prefix leaves the cache alone.
	client.InvalidatePrefix("/api/v1/push")
	if _, err := client.EngagementSummary(ctx); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("expected cache to survive unrelated invalidation, hits = %d", hits)
	}

	client.InvalidatePrefix(api.EngagementPrefix)
	if _, err := client.EngagementSummary(ctx); err != nil {
		t.Fatal(err)
	}
	if hits != 2 {
		t.Errorf("expected invalidation to force a refetch, hits = %d", hits)
	}
}
