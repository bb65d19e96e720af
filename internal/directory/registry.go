package directory

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides directory management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache keyed by MAC.
//
// Every inbound sensor event resolves its device here, so lookups must not
// touch the database on the hot path. The cache is populated on startup via
// RefreshCache() and kept in sync by cache-updating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new directory registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.MAC] = &d
	}

	r.logger.Info("device directory cache refreshed", "count", len(devices))
	return nil
}

// Resolve retrieves a directory entry by hardware address.
// Returns ErrDeviceNotFound if the MAC is not registered; the classifier
// turns that into an "Unknown" placeholder rather than rejecting the event.
// The returned device is a copy; callers can safely modify it.
func (r *Registry) Resolve(ctx context.Context, mac string) (*Device, error) {
	mac = NormalizeMAC(mac)

	r.cacheMu.RLock()
	cached, ok := r.cache[mac]
	r.cacheMu.RUnlock()

	if ok {
		copied := *cached
		return &copied, nil
	}

	// Fall back to repository (might be a new device not yet cached)
	device, err := r.repo.GetByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[device.MAC] = device
	r.cacheMu.Unlock()

	copied := *device
	return &copied, nil
}

// ListDevices retrieves all devices.
// The returned devices are copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d)
		}
		return devices, nil
	}

	return r.repo.List(ctx)
}

// ListDevicesByCategory retrieves all devices of a specific category.
// The returned devices are copies; callers can safely modify them.
func (r *Registry) ListDevicesByCategory(ctx context.Context, category Category) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.Category == category {
				devices = append(devices, *d)
			}
		}
		return devices, nil
	}

	return r.repo.ListByCategory(ctx, category)
}

// RegisterDevice creates a new directory entry.
// It normalises the MAC, validates the entry, and persists it.
func (r *Registry) RegisterDevice(ctx context.Context, device *Device) error {
	device.MAC = NormalizeMAC(device.MAC)

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	copied := *device
	r.cache[device.MAC] = &copied
	r.cacheMu.Unlock()

	r.logger.Info("device registered", "mac", device.MAC, "name", device.Name)
	return nil
}

// UpdateDevice updates an existing directory entry.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	device.MAC = NormalizeMAC(device.MAC)

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	copied := *device
	r.cache[device.MAC] = &copied
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "mac", device.MAC, "name", device.Name)
	return nil
}

// DeleteDevice removes a directory entry.
func (r *Registry) DeleteDevice(ctx context.Context, mac string) error {
	mac = NormalizeMAC(mac)

	if err := r.repo.Delete(ctx, mac); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, mac)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "mac", mac)
	return nil
}

// DeviceCount returns the number of cached devices.
func (r *Registry) DeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
