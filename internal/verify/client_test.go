package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/config"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

func testConfig(baseURL string) config.VerificationConfig {
	return config.VerificationConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		Timeout:           time.Second,
		MaxAccuracyMeters: 50,
		MinConfidence:     0.7,
	}
}

func providerResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func strPtr(s string) *string { return &s }

func TestVerifySuccess(t *testing.T) {
	var gotAuth, gotLat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotLat = r.URL.Query().Get("lat")
		providerResponse(`{"results":[{"city":"Pune","state":"Maharashtra","locality":"Shivajinagar","pincode":"411005","formatted_address":"Shivajinagar, Pune","confidenceScore":0.94}]}`)(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	result, err := client.Verify(context.Background(), Request{
		Latitude:       18.5308,
		Longitude:      73.8474,
		AccuracyMeters: 12,
		ExpectedCity:   strPtr("Pune"),
		ExpectedState:  strPtr("Maharashtra"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotLat != "18.5308" {
		t.Fatalf("unexpected lat query: %s", gotLat)
	}
	if !result.IsValid {
		t.Fatalf("expected valid result")
	}
	if !result.Complete() {
		t.Fatalf("expected complete verification result")
	}
	if result.ReverseGeocode.City != "Pune" {
		t.Fatalf("unexpected city: %s", result.ReverseGeocode.City)
	}
	if result.AccuracyMeters == nil || *result.AccuracyMeters != 12 {
		t.Fatalf("expected echoed accuracy, got %v", result.AccuracyMeters)
	}
}

func TestVerifyCityCaseInsensitive(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"PUNE","state":"maharashtra","confidenceScore":0.9}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{
		Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10,
		ExpectedCity:  strPtr("Pune"),
		ExpectedState: strPtr("Maharashtra"),
	})
	if err != nil {
		t.Fatalf("expected case-insensitive match, got %v", err)
	}
}

func TestVerifyNotConfigured(t *testing.T) {
	client := NewClient(config.VerificationConfig{}, nil)
	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrVerifierNotConfigured) {
		t.Fatalf("expected VERIFIER_NOT_CONFIGURED, got %v", err)
	}
}

func TestVerifyAccuracyGateSkipsNetwork(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 120})
	if !appErrors.Is(err, appErrors.ErrAccuracyTooLow) {
		t.Fatalf("expected ACCURACY_TOO_LOW, got %v", err)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Fatalf("expected no provider call, got %d", calls)
	}
	if details := appErrors.FromError(err).Details; details["maxAllowedMeters"] != 50.0 {
		t.Fatalf("expected threshold detail, got %v", details)
	}
}

func TestVerifyAccuracyAtThresholdPasses(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"Pune","state":"Maharashtra","confidenceScore":0.9}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	if _, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 50}); err != nil {
		t.Fatalf("accuracy equal to the bound should pass, got %v", err)
	}
}

func TestVerifyLowConfidence(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"Pune","state":"Maharashtra","confidenceScore":0.4}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrLowConfidence) {
		t.Fatalf("expected LOW_CONFIDENCE, got %v", err)
	}
	if appErrors.FromError(err).Details["confidence"] != 0.4 {
		t.Fatalf("expected confidence detail, got %v", appErrors.FromError(err).Details)
	}
}

func TestVerifyMissingConfidence(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"Pune","state":"Maharashtra"}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrVerifierBadResponse) {
		t.Fatalf("expected VERIFIER_BAD_RESPONSE, got %v", err)
	}
}

func TestVerifyCityMismatch(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"Mumbai","state":"Maharashtra","confidenceScore":0.9}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{
		Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10,
		ExpectedCity: strPtr("Pune"),
	})
	if !appErrors.Is(err, appErrors.ErrCityMismatch) {
		t.Fatalf("expected CITY_MISMATCH, got %v", err)
	}
	details := appErrors.FromError(err).Details
	if details["reportedCity"] != "Mumbai" || details["expectedCity"] != "Pune" {
		t.Fatalf("unexpected mismatch details: %v", details)
	}
}

func TestVerifyStateMismatch(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"Pune","state":"Karnataka","confidenceScore":0.9}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{
		Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10,
		ExpectedState: strPtr("Maharashtra"),
	})
	if !appErrors.Is(err, appErrors.ErrStateMismatch) {
		t.Fatalf("expected STATE_MISMATCH, got %v", err)
	}
}

func TestVerifyUpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   *appErrors.Error
	}{
		{"unauthorized maps to not configured", http.StatusUnauthorized, appErrors.ErrVerifierNotConfigured},
		{"forbidden maps to not configured", http.StatusForbidden, appErrors.ErrVerifierNotConfigured},
		{"server error maps to unavailable", http.StatusInternalServerError, appErrors.ErrVerifierUnavailable},
		{"bad gateway maps to unavailable", http.StatusBadGateway, appErrors.ErrVerifierUnavailable},
		{"unexpected status maps to bad response", http.StatusTeapot, appErrors.ErrVerifierBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			client := NewClient(testConfig(server.URL), nil)
			client.httpClient = server.Client()

			_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
			if !appErrors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
		})
	}
}

func TestVerifyMalformedBody(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results": [`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrVerifierBadResponse) {
		t.Fatalf("expected VERIFIER_BAD_RESPONSE, got %v", err)
	}
}

func TestVerifyEmptyResults(t *testing.T) {
	server := httptest.NewServer(providerResponse(`{"results":[]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrVerifierBadResponse) {
		t.Fatalf("expected VERIFIER_BAD_RESPONSE, got %v", err)
	}
}

func TestVerifyTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(testConfig(url), nil)

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrVerifierUnavailable) {
		t.Fatalf("expected VERIFIER_UNAVAILABLE, got %v", err)
	}
}

func TestVerifyTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.Timeout = 20 * time.Millisecond
	client := NewClient(cfg, nil)

	_, err := client.Verify(context.Background(), Request{Latitude: 18.53, Longitude: 73.84, AccuracyMeters: 10})
	if !appErrors.Is(err, appErrors.ErrVerifierUnavailable) {
		t.Fatalf("expected VERIFIER_UNAVAILABLE on timeout, got %v", err)
	}
}

func TestVerifyGeofence(t *testing.T) {
	fence := models.GeofencePolygon{
		{Latitude: 18.52, Longitude: 73.84},
		{Latitude: 18.54, Longitude: 73.84},
		{Latitude: 18.54, Longitude: 73.86},
		{Latitude: 18.52, Longitude: 73.86},
	}
	server := httptest.NewServer(providerResponse(`{"results":[{"city":"Pune","state":"Maharashtra","confidenceScore":0.9}]}`))
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), nil)
	client.httpClient = server.Client()

	result, err := client.Verify(context.Background(), Request{
		Latitude: 18.53, Longitude: 73.85, AccuracyMeters: 10,
		Geofence: fence,
	})
	if err != nil {
		t.Fatalf("expected inside point to pass, got %v", err)
	}
	if result.Geofence == nil || !result.Geofence.IsInside {
		t.Fatalf("expected geofence containment recorded, got %+v", result.Geofence)
	}

	_, err = client.Verify(context.Background(), Request{
		Latitude: 18.60, Longitude: 73.85, AccuracyMeters: 10,
		Geofence: fence,
	})
	if !appErrors.Is(err, appErrors.ErrOutsideGeofence) {
		t.Fatalf("expected OUTSIDE_GEOFENCE, got %v", err)
	}
	if _, ok := appErrors.FromError(err).Details["distanceMeters"]; !ok {
		t.Fatalf("expected distance detail, got %v", appErrors.FromError(err).Details)
	}
}
