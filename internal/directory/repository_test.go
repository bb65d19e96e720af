package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Create devices table matching the schema
	schema := `
		CREATE TABLE devices (
			mac TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL CHECK (category IN ('motion', 'contact', 'plug', 'meter')),
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_location ON devices(location);
		CREATE INDEX idx_devices_category ON devices(category);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a directory entry for testing.
func testDevice(mac, name string) *Device {
	return &Device{
		MAC:      mac,
		Name:     name,
		Location: "hallway",
		Category: CategoryMotion,
	}
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates device successfully", func(t *testing.T) {
		device := testDevice("a4:c1:38:00:11:22", "Hallway Motion")

		err := repo.Create(ctx, device)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByMAC(ctx, "a4:c1:38:00:11:22")
		if err != nil {
			t.Fatalf("GetByMAC() error = %v", err)
		}
		if got.Name != "Hallway Motion" {
			t.Errorf("Name = %q, want %q", got.Name, "Hallway Motion")
		}
		if got.Category != CategoryMotion {
			t.Errorf("Category = %q, want %q", got.Category, CategoryMotion)
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
	})

	t.Run("returns error for duplicate MAC", func(t *testing.T) {
		device := testDevice("a4:c1:38:00:aa:bb", "First Device")
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		device2 := testDevice("a4:c1:38:00:aa:bb", "Second Device")
		err := repo.Create(ctx, device2)
		if !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Create() error = %v, want ErrDeviceExists", err)
		}
	})
}

func TestSQLiteRepository_GetByMAC(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("returns not found for unknown MAC", func(t *testing.T) {
		_, err := repo.GetByMAC(ctx, "ff:ff:ff:ff:ff:ff")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByMAC() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("normalises MAC case on lookup", func(t *testing.T) {
		device := testDevice("a4:c1:38:00:22:33", "Front Door")
		device.Category = CategoryContact
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByMAC(ctx, "A4:C1:38:00:22:33")
		if err != nil {
			t.Fatalf("GetByMAC() error = %v", err)
		}
		if got.Name != "Front Door" {
			t.Errorf("Name = %q, want Front Door", got.Name)
		}
	})
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("updates existing device", func(t *testing.T) {
		device := testDevice("a4:c1:38:00:33:44", "Old Name")
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		device.Name = "New Name"
		device.Location = "kitchen"
		if err := repo.Update(ctx, device); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.GetByMAC(ctx, device.MAC)
		if err != nil {
			t.Fatalf("GetByMAC() error = %v", err)
		}
		if got.Name != "New Name" {
			t.Errorf("Name = %q, want New Name", got.Name)
		}
		if got.Location != "kitchen" {
			t.Errorf("Location = %q, want kitchen", got.Location)
		}
	})

	t.Run("returns not found for unknown device", func(t *testing.T) {
		device := testDevice("ff:ff:ff:ff:00:01", "Ghost")
		err := repo.Update(ctx, device)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("deletes existing device", func(t *testing.T) {
		device := testDevice("a4:c1:38:00:44:55", "Doomed")
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := repo.Delete(ctx, device.MAC); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		_, err := repo.GetByMAC(ctx, device.MAC)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByMAC() after delete error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("returns not found for unknown device", func(t *testing.T) {
		err := repo.Delete(ctx, "ff:ff:ff:ff:00:02")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Delete() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_ListByCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	motion := testDevice("a4:c1:38:00:55:66", "Landing Motion")
	contact := testDevice("a4:c1:38:00:66:77", "Back Door")
	contact.Category = CategoryContact

	for _, d := range []*Device{motion, contact} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.Name, err)
		}
	}

	got, err := repo.ListByCategory(ctx, CategoryContact)
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListByCategory() returned %d devices, want 1", len(got))
	}
	if got[0].Name != "Back Door" {
		t.Errorf("Name = %q, want Back Door", got[0].Name)
	}
}
