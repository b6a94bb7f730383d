package consumption

import "errors"

// Sentinel errors for coordinator operations. Wrapped errors carry the
// offending IDs; use errors.Is for classification.
var (
	// ErrUserNotFound indicates the user directory does not know the user.
	// This is an authoritative answer from the directory, never a
	// stand-in for a transport failure.
	ErrUserNotFound = errors.New("consumption: user not found")

	// ErrDeviceUnassigned indicates the device exists but has no owner,
	// so its reports cannot be attributed or alerted on.
	ErrDeviceUnassigned = errors.New("consumption: device not associated with a user")

	// ErrInvalidDate indicates a report date that is not a calendar day
	// in 2006-01-02 form.
	ErrInvalidDate = errors.New("consumption: invalid report date")
)
