package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthwatch/hearthwatch-core/internal/directory"
)

// handleListDevices returns all directory entries, optionally filtered by
// category.
//
// Query parameters:
//   - category: filter by device category (motion, contact, plug, meter)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if category := r.URL.Query().Get("category"); category != "" {
		devices, err := s.dir.ListDevicesByCategory(ctx, directory.Category(category))
		if err != nil {
			if errors.Is(err, directory.ErrInvalidCategory) {
				writeBadRequest(w, err.Error())
				return
			}
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := s.dir.ListDevices(ctx)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single directory entry by MAC address.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")

	dev, err := s.dir.Resolve(r.Context(), mac)
	if err != nil {
		if errors.Is(err, directory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleRegisterDevice creates a new directory entry.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var dev directory.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.dir.RegisterDevice(r.Context(), &dev); err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidDevice),
			errors.Is(err, directory.ErrInvalidMAC),
			errors.Is(err, directory.ErrInvalidCategory),
			errors.Is(err, directory.ErrInvalidName):
			writeBadRequest(w, err.Error())
		case errors.Is(err, directory.ErrDeviceExists):
			writeConflict(w, "device already registered")
		default:
			writeInternalError(w, "failed to register device")
		}
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice replaces a directory entry's mutable fields.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")

	existing, err := s.dir.Resolve(r.Context(), mac)
	if err != nil {
		if errors.Is(err, directory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	// Decode partial update onto the existing entry
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.MAC = mac // the MAC is the identity and cannot be changed

	if err := s.dir.UpdateDevice(r.Context(), existing); err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidDevice),
			errors.Is(err, directory.ErrInvalidMAC),
			errors.Is(err, directory.ErrInvalidCategory),
			errors.Is(err, directory.ErrInvalidName):
			writeBadRequest(w, err.Error())
		case errors.Is(err, directory.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		default:
			writeInternalError(w, "failed to update device")
		}
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a directory entry.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")

	if err := s.dir.DeleteDevice(r.Context(), mac); err != nil {
		if errors.Is(err, directory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
