package service

import (
	"github.com/upasthit/attendance-api/internal/models"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

// DeviceGuard enforces the one-device-per-user policy with a secondary
// user-agent signature check to flag cloned device identifiers.
type DeviceGuard struct{}

// Check compares the presented identity against the user's registered
// binding. bind reports that the commit must persist the presented identity
// (first successful check-in). A mismatch on the device identifier rejects
// outright; a matching identifier under a different recorded user agent is
// treated as a cloning attempt. Users with no recorded user agent skip the
// secondary check.
func (DeviceGuard) Check(user *models.User, deviceID, userAgent string) (bind bool, err error) {
	if user.RegisteredDeviceID == nil || *user.RegisteredDeviceID == "" {
		return true, nil
	}
	if *user.RegisteredDeviceID != deviceID {
		return false, appErrors.ErrDeviceMismatch
	}
	if user.RegisteredUserAgent != nil && *user.RegisteredUserAgent != "" && *user.RegisteredUserAgent != userAgent {
		return false, appErrors.ErrDeviceCloneSuspect
	}
	return false, nil
}
