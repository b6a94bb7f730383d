package device

import "time"

// Device represents a metered physical device tracked by VoltWatch.
// This matches the database schema in migrations/20260115_100000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID string `json:"id"`

	// UserID is the owning user in the remote user directory.
	// Nil until the device has been associated.
	UserID *string `json:"user_id,omitempty"`

	// Description is free text describing the device.
	Description string `json:"description"`

	// MaxHourlyConsumption is the per-hour consumption ceiling that
	// triggers an alert when exceeded. Always non-negative.
	MaxHourlyConsumption float64 `json:"max_hourly_consumption"`

	// Address is the installation location, free text.
	Address string `json:"address"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Copy returns an independent copy of the Device.
// The UserID pointer is cloned so callers can mutate the copy freely.
func (d *Device) Copy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.UserID != nil {
		userID := *d.UserID
		cpy.UserID = &userID
	}
	return &cpy
}

// Associated reports whether the device has an owning user.
func (d *Device) Associated() bool {
	return d.UserID != nil && *d.UserID != ""
}

// Update describes a partial update to a device.
// Nil fields are left unchanged.
type Update struct {
	Description          *string  `json:"description,omitempty"`
	MaxHourlyConsumption *float64 `json:"max_hourly_consumption,omitempty"`
	Address              *string  `json:"address,omitempty"`
}

// Apply copies the non-nil fields of the update onto the device.
func (u Update) Apply(d *Device) {
	if u.Description != nil {
		d.Description = *u.Description
	}
	if u.MaxHourlyConsumption != nil {
		d.MaxHourlyConsumption = *u.MaxHourlyConsumption
	}
	if u.Address != nil {
		d.Address = *u.Address
	}
}
