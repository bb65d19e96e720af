package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for directory persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByMAC retrieves a device by its hardware address.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByMAC(ctx context.Context, mac string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListByCategory retrieves all devices of a specific category.
	ListByCategory(ctx context.Context, category Category) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the MAC is already registered.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by MAC.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, mac string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = "mac, name, location, category, created_at, updated_at"

// GetByMAC retrieves a device by its hardware address.
func (r *SQLiteRepository) GetByMAC(ctx context.Context, mac string) (*Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices WHERE mac = ?"

	row := r.db.QueryRowContext(ctx, query, NormalizeMAC(mac))
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by mac: %w", err)
	}
	return device, nil
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices ORDER BY name"
	return r.queryDevices(ctx, query)
}

// ListByCategory retrieves all devices of a specific category.
func (r *SQLiteRepository) ListByCategory(ctx context.Context, category Category) ([]Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices WHERE category = ? ORDER BY name"
	return r.queryDevices(ctx, query, string(category))
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	query := `
		INSERT INTO devices (mac, name, location, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		device.MAC,
		device.Name,
		device.Location,
		string(device.Category),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices
		SET name = ?, location = ?, category = ?, updated_at = ?
		WHERE mac = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Name,
		device.Location,
		string(device.Category),
		device.UpdatedAt.Format(time.RFC3339),
		device.MAC,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete removes a device by MAC.
func (r *SQLiteRepository) Delete(ctx context.Context, mac string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE mac = ?", NormalizeMAC(mac))
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var category string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.MAC,
		&d.Name,
		&d.Location,
		&category,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Category = Category(category)

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
