package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/config"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
	"github.com/upasthit/attendance-api/pkg/geo"
)

const providerName = "mapverify"

// Client verifies locations against the external reverse-geocoding provider.
// Credentials and thresholds come from the constructor; a missing BaseURL or
// APIKey makes every required verification reject VERIFIER_NOT_CONFIGURED.
type Client struct {
	cfg        config.VerificationConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a verification client with a bounded-timeout HTTP
// client so a stalled provider cannot hang the admission pipeline.
func NewClient(cfg config.VerificationConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type upstreamResult struct {
	City             string   `json:"city"`
	State            string   `json:"state"`
	Locality         string   `json:"locality"`
	District         string   `json:"district"`
	Pincode          string   `json:"pincode"`
	FormattedAddress string   `json:"formatted_address"`
	ConfidenceScore  *float64 `json:"confidenceScore"`
}

type upstreamResponse struct {
	Results []upstreamResult `json:"results"`
}

// Verify implements the Verifier contract. The accuracy acceptance bound is
// enforced before the network call; all upstream failures, including
// timeouts, map to hard rejections.
func (c *Client) Verify(ctx context.Context, req Request) (*models.VerificationResult, error) {
	if c.cfg.BaseURL == "" || c.cfg.APIKey == "" {
		return nil, appErrors.ErrVerifierNotConfigured
	}

	if c.cfg.MaxAccuracyMeters > 0 && req.AccuracyMeters > c.cfg.MaxAccuracyMeters {
		return nil, appErrors.ErrAccuracyTooLow.WithDetails(map[string]interface{}{
			"accuracyRadiusMeters": req.AccuracyMeters,
			"maxAllowedMeters":     c.cfg.MaxAccuracyMeters,
		})
	}

	result, err := c.reverseGeocode(ctx, req)
	if err != nil {
		return nil, err
	}

	if result.ConfidenceScore == nil {
		return nil, appErrors.Clone(appErrors.ErrVerifierBadResponse, "provider response missing confidence score")
	}
	if *result.ConfidenceScore < c.cfg.MinConfidence {
		return nil, appErrors.ErrLowConfidence.WithDetails(map[string]interface{}{
			"confidence":    *result.ConfidenceScore,
			"minConfidence": c.cfg.MinConfidence,
		})
	}
	if result.City == "" {
		return nil, appErrors.Clone(appErrors.ErrVerifierBadResponse, "provider response missing reverse geocode")
	}

	if req.ExpectedCity != nil && *req.ExpectedCity != "" && !strings.EqualFold(result.City, *req.ExpectedCity) {
		return nil, appErrors.ErrCityMismatch.WithDetails(map[string]interface{}{
			"reportedCity": result.City,
			"expectedCity": *req.ExpectedCity,
		})
	}
	if req.ExpectedState != nil && *req.ExpectedState != "" && !strings.EqualFold(result.State, *req.ExpectedState) {
		return nil, appErrors.ErrStateMismatch.WithDetails(map[string]interface{}{
			"reportedState": result.State,
			"expectedState": *req.ExpectedState,
		})
	}

	verification := &models.VerificationResult{
		IsValid:         true,
		ConfidenceScore: result.ConfidenceScore,
		AccuracyMeters:  &req.AccuracyMeters,
		ReverseGeocode: &models.ReverseGeocode{
			City:        result.City,
			State:       result.State,
			Locality:    result.Locality,
			District:    result.District,
			Pincode:     result.Pincode,
			FullAddress: result.FormattedAddress,
		},
	}

	if len(req.Geofence) > 0 {
		point := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}
		inside := geo.PolygonContains(req.Geofence, point)
		distance := geo.DistanceToPolygon(req.Geofence, point)
		verification.Geofence = &models.GeofenceResult{IsInside: inside, DistanceMeters: distance}
		if !inside {
			return nil, appErrors.ErrOutsideGeofence.WithDetails(map[string]interface{}{
				"distanceMeters": distance,
			})
		}
	}

	return verification, nil
}

func (c *Client) reverseGeocode(ctx context.Context, req Request) (*upstreamResult, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/rev_geocode"
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	params.Set("accuracy", strconv.FormatFloat(req.AccuracyMeters, 'f', -1, 64))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrVerifierUnavailable.Code, appErrors.ErrVerifierUnavailable.Status, appErrors.ErrVerifierUnavailable.Message)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("location provider unreachable", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, appErrors.Wrap(err, appErrors.ErrVerifierUnavailable.Code, appErrors.ErrVerifierUnavailable.Status, appErrors.ErrVerifierUnavailable.Message)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, appErrors.Clone(appErrors.ErrVerifierNotConfigured, "location verification credentials rejected")
	case resp.StatusCode >= http.StatusInternalServerError:
		c.logger.Warn("location provider error", zap.Int("status", resp.StatusCode))
		return nil, appErrors.New(appErrors.ErrVerifierUnavailable.Code, appErrors.ErrVerifierUnavailable.Status,
			fmt.Sprintf("location verification service returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, appErrors.New(appErrors.ErrVerifierBadResponse.Code, appErrors.ErrVerifierBadResponse.Status,
			fmt.Sprintf("unexpected provider status %d", resp.StatusCode))
	}

	var payload upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrVerifierBadResponse.Code, appErrors.ErrVerifierBadResponse.Status, appErrors.ErrVerifierBadResponse.Message)
	}
	if len(payload.Results) == 0 {
		return nil, appErrors.Clone(appErrors.ErrVerifierBadResponse, "provider response carries no results")
	}

	return &payload.Results[0], nil
}

// Provider names the upstream for audit snapshots.
func (c *Client) Provider() string {
	return providerName
}
