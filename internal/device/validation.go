package device

import (
	"fmt"

	"github.com/google/uuid"
)

// Validation limits. Description and address are free text entered by
// installers; the caps keep a single record from bloating the registry.
const (
	maxDescriptionLength = 500
	maxAddressLength     = 500
)

// Validate checks that a device is well-formed before persistence.
// Returns ErrInvalidDevice wrapped with the first problem found.
func Validate(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}

	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if _, err := uuid.Parse(d.ID); err != nil {
		return fmt.Errorf("%w: id must be a UUID: %v", ErrInvalidDevice, err)
	}

	if d.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidDevice)
	}
	if len(d.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidDevice, maxDescriptionLength)
	}

	if d.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidDevice)
	}
	if len(d.Address) > maxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters", ErrInvalidDevice, maxAddressLength)
	}

	if d.MaxHourlyConsumption < 0 {
		return fmt.Errorf("%w: max_hourly_consumption must be non-negative", ErrInvalidDevice)
	}

	if d.UserID != nil && *d.UserID == "" {
		return fmt.Errorf("%w: user_id must be nil or non-empty", ErrInvalidDevice)
	}

	return nil
}

// NewID generates a new device identifier.
func NewID() string {
	return uuid.NewString()
}
