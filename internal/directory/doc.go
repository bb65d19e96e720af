// Package directory provides the device directory for Hearthwatch Core.
//
// The directory is the catalogue of registered sensors: it maps a raw
// hardware address (MAC) to a display name, an install location, and a
// category (motion, contact, plug, meter). The classifier resolves every
// inbound event here; the admin API manages entries.
//
// # Key Types
//
//   - Device: a directory entry (MAC, name, location, category)
//   - Category: what kind of sensor a device is
//   - Repository: persistence interface (SQLite implementation provided)
//   - Registry: cached, thread-safe front for the repository
//
// # Usage
//
//	repo := directory.NewSQLiteRepository(db)
//	registry := directory.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	dev, err := registry.Resolve(ctx, "A4:C1:38:00:11:22")
//	if errors.Is(err, directory.ErrDeviceNotFound) {
//	    // unregistered hardware, caller synthesises a placeholder
//	}
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex. The Repository implementation must also be thread-safe.
package directory
