package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltwatch/voltwatch-core/internal/auth"
	"github.com/voltwatch/voltwatch-core/internal/consumption"
	"github.com/voltwatch/voltwatch-core/internal/device"
	"github.com/voltwatch/voltwatch-core/internal/rpc"
)

// createDeviceRequest is the request body for POST /devices.
type createDeviceRequest struct {
	ID                   string  `json:"id,omitempty"`
	Description          string  `json:"description"`
	MaxHourlyConsumption float64 `json:"max_hourly_consumption"`
	Address              string  `json:"address"`
}

// associateRequest is the request body for PATCH /devices/{id}/associate.
type associateRequest struct {
	UserID string `json:"user_id"`
}

// handleListDevices returns devices visible to the caller: admins see the
// whole registry, users see only their own.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var (
		devices []device.Device
		err     error
	)
	if claims.Role == auth.RoleAdmin {
		devices, err = s.devices.List(r.Context())
	} else {
		devices, err = s.devices.ListByUser(r.Context(), claims.Subject)
	}
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id := req.ID
	if id == "" {
		id = device.NewID()
	}

	dev := &device.Device{
		ID:                   id,
		Description:          req.Description,
		MaxHourlyConsumption: req.MaxHourlyConsumption,
		Address:              req.Address,
	}

	if err := s.devices.Create(r.Context(), dev); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, "device already exists: "+id)
		case errors.Is(err, device.ErrInvalidDevice):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("failed to create device", "device_id", id, "error", err)
			writeInternalError(w, "failed to create device")
		}
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleGetDevice returns a single device. Users may only read their own.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found: "+id)
			return
		}
		s.logger.Error("failed to get device", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	claims := claimsFrom(r.Context())
	if claims.Role != auth.RoleAdmin {
		if dev.UserID == nil || *dev.UserID != claims.Subject {
			// Hide other users' devices rather than confirming they exist.
			writeNotFound(w, "device not found: "+id)
			return
		}
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleUpdateDevice applies a partial update to a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update device.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found: "+id)
			return
		}
		s.logger.Error("failed to get device", "device_id", id, "error", err)
		writeInternalError(w, "failed to update device")
		return
	}

	update.Apply(dev)

	if err := s.devices.Update(r.Context(), dev); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found: "+id)
		case errors.Is(err, device.ErrInvalidDevice):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("failed to update device", "device_id", id, "error", err)
			writeInternalError(w, "failed to update device")
		}
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device from the registry.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.devices.Delete(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found: "+id)
			return
		}
		s.logger.Error("failed to delete device", "device_id", id, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAssociateDevice binds a device to a user after both are verified.
func (s *Server) handleAssociateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req associateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	dev, err := s.coordinator.Associate(r.Context(), id, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound) || errors.Is(err, consumption.ErrUserNotFound):
			writeNotFound(w, err.Error())
		case errors.Is(err, rpc.ErrTimeout) || errors.Is(err, rpc.ErrUnreachable):
			writeBadGateway(w, "user directory unavailable")
		default:
			s.logger.Error("failed to associate device",
				"device_id", id,
				"user_id", req.UserID,
				"error", err,
			)
			writeInternalError(w, "failed to associate device")
		}
		return
	}

	writeJSON(w, http.StatusOK, dev)
}
