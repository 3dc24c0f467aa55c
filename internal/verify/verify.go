// Package verify defines the location verification contract the admission
// pipeline consumes, plus the HTTP client for the external provider. Every
// failure at this boundary is a hard rejection; there is no partial success.
package verify

import (
	"context"

	"github.com/upasthit/attendance-api/internal/models"
)

// Request carries one attempt's presented location plus the session's
// expectations. Coordinates are pre-validated by the caller.
type Request struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	ExpectedCity   *string
	ExpectedState  *string
	Geofence       models.GeofencePolygon
}

// Verifier is the external location verification contract. A nil error means
// a complete result with IsValid = true; any error means the attempt must be
// rejected with that reason, verbatim. Provider names the upstream for audit
// snapshots.
type Verifier interface {
	Verify(ctx context.Context, req Request) (*models.VerificationResult, error)
	Provider() string
}
