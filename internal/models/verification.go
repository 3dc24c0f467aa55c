package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReverseGeocode is the address breakdown returned by the verification
// provider for the presented coordinates.
type ReverseGeocode struct {
	City        string `json:"city"`
	State       string `json:"state"`
	Locality    string `json:"locality,omitempty"`
	District    string `json:"district,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
	FullAddress string `json:"full_address,omitempty"`
}

// GeofenceResult reports polygon containment for one verification attempt.
type GeofenceResult struct {
	IsInside       bool    `json:"is_inside"`
	DistanceMeters float64 `json:"distance_meters"`
}

// VerificationResult is the outcome of one successful location verification.
// It exists only for the attempt that produced it; the admission pipeline
// snapshots the relevant slice into the attendance record.
type VerificationResult struct {
	IsValid         bool            `json:"is_valid"`
	ConfidenceScore *float64        `json:"confidence_score"`
	AccuracyMeters  *float64        `json:"accuracy_meters"`
	ReverseGeocode  *ReverseGeocode `json:"reverse_geocode"`
	Geofence        *GeofenceResult `json:"geofence,omitempty"`
}

// Complete reports whether the result carries everything a committed record
// must snapshot. A success missing any of these is an internal-consistency
// failure, never defaulted.
func (r *VerificationResult) Complete() bool {
	return r != nil &&
		r.IsValid &&
		r.ConfidenceScore != nil &&
		r.AccuracyMeters != nil &&
		r.ReverseGeocode != nil &&
		r.ReverseGeocode.City != ""
}

// VerificationSnapshot is the audit slice of a verification result persisted
// on the attendance row as JSONB.
type VerificationSnapshot struct {
	Provider        string          `json:"provider"`
	ConfidenceScore float64         `json:"confidence_score"`
	AccuracyMeters  float64         `json:"accuracy_meters"`
	ReverseGeocode  ReverseGeocode  `json:"reverse_geocode"`
	Geofence        *GeofenceResult `json:"geofence,omitempty"`
	DistanceMeters  *float64        `json:"distance_meters,omitempty"`
	VerifiedAt      time.Time       `json:"verified_at"`
}

// Value marshals the snapshot to JSON for persistence.
func (s VerificationSnapshot) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal verification snapshot: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the snapshot.
func (s *VerificationSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = VerificationSnapshot{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for VerificationSnapshot", value)
	}
	if len(data) == 0 {
		*s = VerificationSnapshot{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal verification snapshot: %w", err)
	}
	return nil
}
