package dto

import "time"

// LocationPayload carries the raw coordinates presented by the client.
// Pointers distinguish "absent" from zero values; the location gate owns all
// validation so remote sessions can omit the payload entirely.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CheckInRequest captures POST /attendance/check-in payload. UserAgent falls
// back to the User-Agent header when the field is empty.
type CheckInRequest struct {
	SessionID            string           `json:"sessionId" validate:"required"`
	DeviceID             string           `json:"deviceId"`
	UserAgent            string           `json:"userAgent"`
	Location             *LocationPayload `json:"location"`
	AccuracyRadiusMeters *float64         `json:"accuracyRadiusMeters"`
	ClientTimestamp      *time.Time       `json:"clientTimestamp"`
}

// CheckInResult is returned after a successful admission.
type CheckInResult struct {
	Status         string    `json:"status"`
	SessionID      string    `json:"sessionId"`
	OccurrenceDate string    `json:"occurrenceDate"`
	CheckInTime    time.Time `json:"checkInTime"`
	IsLate         bool      `json:"isLate"`
	LateByMinutes  *int      `json:"lateByMinutes,omitempty"`
}
