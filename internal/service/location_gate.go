package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/dto"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/verify"
	"github.com/upasthit/attendance-api/pkg/config"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
	"github.com/upasthit/attendance-api/pkg/geo"
)

// Accuracy validity ceiling in meters. Distinct from the configurable
// acceptance bound the verifier enforces: readings above this value are not a
// plausible GPS fix at all.
const maxValidAccuracyMeters = 1000.0

// LocationGate decides whether location proof is required for an attempt and,
// when it is, enforces a hard pass/fail with no fallback. Every rejection
// terminates the attempt; a pass yields the audit snapshot for the record.
type LocationGate struct {
	verifier verify.Verifier
	cfg      config.AttendanceConfig
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewLocationGate constructs the gate. Thresholds and the default radius come
// from configuration, never from globals.
func NewLocationGate(verifier verify.Verifier, cfg config.AttendanceConfig, metrics *MetricsService, logger *zap.Logger) *LocationGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationGate{verifier: verifier, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

// Required reports whether this user's assignment needs location proof.
// PHYSICAL sessions always do; HYBRID sessions only for physically attending
// users; REMOTE sessions never.
func (g *LocationGate) Required(session *models.Session, assignment *models.SessionAssignment) bool {
	switch session.SessionType {
	case models.SessionTypePhysical:
		return true
	case models.SessionTypeHybrid:
		return assignment != nil && assignment.Mode == models.ModePhysical
	default:
		return false
	}
}

// Clear runs the gate for one attempt. When location is not required it
// returns (nil, nil) without touching the verifier: the attempt counts as
// verified by policy. When required, it validates the payload, resolves the
// session's configured fix, calls the verifier, and applies the distance
// check, returning the snapshot to persist or the typed rejection.
func (g *LocationGate) Clear(ctx context.Context, session *models.Session, assignment *models.SessionAssignment, req *dto.CheckInRequest) (*models.VerificationSnapshot, error) {
	if !g.Required(session, assignment) {
		return nil, nil
	}

	presented, accuracy, err := validateLocationPayload(req)
	if err != nil {
		return nil, err
	}

	// Every descriptor variant must resolve to concrete coordinates before
	// any verification happens; nothing passes the gate by descriptor type
	// alone.
	fix, ok := sessionFix(session)
	if !ok {
		return nil, appErrors.ErrSessionLocationNotConfigured
	}

	vreq := verify.Request{
		Latitude:       presented.Latitude,
		Longitude:      presented.Longitude,
		AccuracyMeters: accuracy,
		ExpectedCity:   session.City,
		ExpectedState:  session.State,
		Geofence:       session.Geofence,
	}

	start := time.Now()
	result, err := g.verifier.Verify(ctx, vreq)
	if g.metrics != nil {
		g.metrics.ObserveVerification(time.Since(start), err == nil)
	}
	if err != nil {
		return nil, err
	}

	var distance *float64
	if len(session.Geofence) == 0 {
		d := geo.Haversine(fix, presented)
		radius := g.cfg.DefaultRadiusMeters
		if session.RadiusMeters != nil && *session.RadiusMeters > 0 {
			radius = *session.RadiusMeters
		}
		if d > radius {
			return nil, appErrors.ErrLocationTooFar.WithDetails(map[string]interface{}{
				"distanceMeters":       d,
				"requiredRadiusMeters": radius,
			})
		}
		distance = &d
	}

	if !result.Complete() {
		g.logger.Error("verifier returned an incomplete success result",
			zap.String("session_id", session.ID), zap.String("provider", g.verifier.Provider()))
		return nil, appErrors.ErrVerificationInconsistent
	}

	return &models.VerificationSnapshot{
		Provider:        g.verifier.Provider(),
		ConfidenceScore: *result.ConfidenceScore,
		AccuracyMeters:  *result.AccuracyMeters,
		ReverseGeocode:  *result.ReverseGeocode,
		Geofence:        result.Geofence,
		DistanceMeters:  distance,
		VerifiedAt:      g.now().UTC(),
	}, nil
}

// validateLocationPayload applies the cheap local checks that run before any
// external call: both coordinates present and in range, not the (0,0)
// placeholder, and an accuracy radius inside the validity ceiling.
func validateLocationPayload(req *dto.CheckInRequest) (geo.Point, float64, error) {
	loc := req.Location
	if loc == nil || loc.Latitude == nil || loc.Longitude == nil {
		return geo.Point{}, 0, appErrors.ErrInvalidLocationCoords
	}
	lat, lng := *loc.Latitude, *loc.Longitude
	if geo.IsNullIsland(lat, lng) {
		return geo.Point{}, 0, appErrors.ErrInvalidLocationZero
	}
	if !geo.ValidLatLng(lat, lng) {
		return geo.Point{}, 0, appErrors.ErrInvalidLocationCoords
	}

	if req.AccuracyRadiusMeters == nil {
		return geo.Point{}, 0, appErrors.ErrMissingAccuracy
	}
	accuracy := *req.AccuracyRadiusMeters
	if accuracy <= 0 || accuracy > maxValidAccuracyMeters {
		return geo.Point{}, 0, appErrors.ErrInvalidAccuracy.WithDetails(map[string]interface{}{
			"accuracyRadiusMeters": accuracy,
			"maxValidMeters":       maxValidAccuracyMeters,
		})
	}

	return geo.Point{Latitude: lat, Longitude: lng}, accuracy, nil
}

// sessionFix resolves the session's configured coordinates, trying the direct
// pair, then a shared map link, then the legacy "lat,lng" text field.
func sessionFix(session *models.Session) (geo.Point, bool) {
	if session.Latitude != nil && session.Longitude != nil {
		lat, lng := *session.Latitude, *session.Longitude
		if geo.ValidLatLng(lat, lng) && !geo.IsNullIsland(lat, lng) {
			return geo.Point{Latitude: lat, Longitude: lng}, true
		}
	}
	if session.LocationLink != nil {
		if p, ok := geo.ParseLink(*session.LocationLink); ok {
			return p, true
		}
	}
	if session.LegacyLocation != nil {
		if p, ok := geo.ParsePair(*session.LegacyLocation); ok {
			return p, true
		}
	}
	return geo.Point{}, false
}
