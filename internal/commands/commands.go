// Package commands registers the inbound message-bus commands other
// services send to the VoltWatch core: bulk device removal when a user
// is deleted, hourly consumption reporting from the monitoring service,
// and device existence probes.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voltwatch/voltwatch-core/internal/device"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/rpc"
)

// Inbound command names.
const (
	CommandRemoveUserDevices = "remove_user_devices"
	CommandReportConsumption = "report_consumption"
	CommandDeviceExists      = "device_exists"
)

// DeviceStore is the slice of the device repository the command
// handlers need.
type DeviceStore interface {
	GetByID(ctx context.Context, id string) (*device.Device, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// Ingestor accepts hourly consumption samples for threshold evaluation.
// *consumption.Coordinator satisfies it.
type Ingestor interface {
	Ingest(ctx context.Context, deviceID string, value float64) error
}

// Handlers holds the dependencies for the inbound command handlers.
type Handlers struct {
	devices  DeviceStore
	ingestor Ingestor
	logger   *logging.Logger
}

// New creates the inbound command handlers.
func New(devices DeviceStore, ingestor Ingestor, logger *logging.Logger) (*Handlers, error) {
	if devices == nil {
		return nil, fmt.Errorf("device store is required")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handlers{devices: devices, ingestor: ingestor, logger: logger}, nil
}

// Register installs the command handlers on the RPC server.
func (h *Handlers) Register(srv *rpc.Server) {
	srv.Handle(CommandRemoveUserDevices, h.removeUserDevices)
	srv.Handle(CommandReportConsumption, h.reportConsumption)
	srv.Handle(CommandDeviceExists, h.deviceExists)
}

type removeUserDevicesRequest struct {
	UserID string `json:"userId"`
}

type removeUserDevicesResponse struct {
	Deleted int `json:"deleted"`
}

// removeUserDevices deletes every device owned by a user, typically
// when the user directory removes the user. Asking for a user with no
// devices is an error so the caller can tell the difference from a
// successful bulk delete.
func (h *Handlers) removeUserDevices(ctx context.Context, payload json.RawMessage) (any, error) {
	var req removeUserDevicesRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid remove_user_devices payload: %w", err)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}

	deleted, err := h.devices.DeleteByUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, device.ErrNoUserDevices) {
			return nil, fmt.Errorf("no devices associated to user %s", req.UserID)
		}
		h.logger.Error("failed to delete user devices", "user_id", req.UserID, "error", err)
		return nil, fmt.Errorf("deleting devices for user %s: %w", req.UserID, err)
	}

	h.logger.Info("removed user devices", "user_id", req.UserID, "deleted", deleted)
	return removeUserDevicesResponse{Deleted: deleted}, nil
}

type reportConsumptionRequest struct {
	DeviceID    string  `json:"deviceId"`
	Consumption float64 `json:"consumption"`
}

// reportConsumption feeds an hourly sample from the monitoring service
// into the coordinator, which evaluates it against the device ceiling
// and raises an alert when exceeded.
func (h *Handlers) reportConsumption(ctx context.Context, payload json.RawMessage) (any, error) {
	var req reportConsumptionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid report_consumption payload: %w", err)
	}
	if req.DeviceID == "" {
		return nil, fmt.Errorf("deviceId is required")
	}

	if err := h.ingestor.Ingest(ctx, req.DeviceID, req.Consumption); err != nil {
		return nil, err
	}
	return map[string]bool{"accepted": true}, nil
}

type deviceExistsRequest struct {
	DeviceID string `json:"deviceId"`
}

type deviceExistsResponse struct {
	Exists bool `json:"exists"`
}

// deviceExists answers existence probes from other services.
func (h *Handlers) deviceExists(ctx context.Context, payload json.RawMessage) (any, error) {
	var req deviceExistsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid device_exists payload: %w", err)
	}
	if req.DeviceID == "" {
		return nil, fmt.Errorf("deviceId is required")
	}

	_, err := h.devices.GetByID(ctx, req.DeviceID)
	switch {
	case err == nil:
		return deviceExistsResponse{Exists: true}, nil
	case errors.Is(err, device.ErrDeviceNotFound):
		return deviceExistsResponse{Exists: false}, nil
	default:
		h.logger.Error("failed to probe device", "device_id", req.DeviceID, "error", err)
		return nil, fmt.Errorf("probing device %s: %w", req.DeviceID, err)
	}
}
