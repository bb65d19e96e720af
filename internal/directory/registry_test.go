package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// ─── Mock Dependencies ───────────────────────────────────────────────────────

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device
	gets    int
}

func newMockRepository() *mockRepository {
	return &mockRepository{devices: make(map[string]*Device)}
}

func (m *mockRepository) GetByMAC(_ context.Context, mac string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	d, ok := m.devices[NormalizeMAC(mac)]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *mockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockRepository) ListByCategory(_ context.Context, category Category) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Device
	for _, d := range m.devices {
		if d.Category == category {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, device *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[device.MAC]; exists {
		return ErrDeviceExists
	}
	copied := *device
	m.devices[device.MAC] = &copied
	return nil
}

func (m *mockRepository) Update(_ context.Context, device *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[device.MAC]; !exists {
		return ErrDeviceNotFound
	}
	copied := *device
	m.devices[device.MAC] = &copied
	return nil
}

func (m *mockRepository) Delete(_ context.Context, mac string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[mac]; !exists {
		return ErrDeviceNotFound
	}
	delete(m.devices, mac)
	return nil
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func setupRegistry(t *testing.T) (*Registry, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	return NewRegistry(repo), repo
}

func TestRegistry_Resolve_FromCache(t *testing.T) {
	registry, repo := setupRegistry(t)
	ctx := context.Background()

	device := testDevice("a4:c1:38:00:11:22", "Hallway Motion")
	if err := registry.RegisterDevice(ctx, device); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	repoGetsBefore := repo.gets
	got, err := registry.Resolve(ctx, "A4:C1:38:00:11:22")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Name != "Hallway Motion" {
		t.Errorf("Name = %q, want Hallway Motion", got.Name)
	}
	if repo.gets != repoGetsBefore {
		t.Error("Resolve() hit the repository for a cached device")
	}
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	registry, _ := setupRegistry(t)

	_, err := registry.Resolve(context.Background(), "ff:ff:ff:ff:ff:ff")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Resolve() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_Resolve_FallsBackToRepository(t *testing.T) {
	registry, repo := setupRegistry(t)
	ctx := context.Background()

	// Device exists in the repository but not in the cache.
	device := testDevice("a4:c1:38:00:22:33", "Front Door")
	if err := repo.Create(ctx, device); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := registry.Resolve(ctx, device.MAC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Name != "Front Door" {
		t.Errorf("Name = %q, want Front Door", got.Name)
	}

	// Second resolve should be served from cache.
	repoGetsBefore := repo.gets
	if _, err := registry.Resolve(ctx, device.MAC); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if repo.gets != repoGetsBefore {
		t.Error("second Resolve() hit the repository")
	}
}

func TestRegistry_RegisterDevice_Validates(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		device  *Device
		wantErr error
	}{
		{
			name:    "empty mac",
			device:  &Device{Name: "x", Category: CategoryMotion},
			wantErr: ErrInvalidMAC,
		},
		{
			name:    "malformed mac",
			device:  &Device{MAC: "not-a-mac", Name: "x", Category: CategoryMotion},
			wantErr: ErrInvalidMAC,
		},
		{
			name:    "empty name",
			device:  &Device{MAC: "a4:c1:38:00:11:22", Category: CategoryMotion},
			wantErr: ErrInvalidName,
		},
		{
			name:    "unknown category",
			device:  &Device{MAC: "a4:c1:38:00:11:22", Name: "x", Category: "humidity"},
			wantErr: ErrInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.RegisterDevice(ctx, tt.device)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_RegisterDevice_NormalisesMAC(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	device := testDevice("A4:C1:38:00:99:AA", "Utility Plug")
	device.Category = CategoryPlug
	if err := registry.RegisterDevice(ctx, device); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if device.MAC != "a4:c1:38:00:99:aa" {
		t.Errorf("MAC = %q, want normalised lowercase", device.MAC)
	}
}

func TestRegistry_DeleteDevice_EvictsCache(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	device := testDevice("a4:c1:38:00:33:44", "Doomed")
	if err := registry.RegisterDevice(ctx, device); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	if err := registry.DeleteDevice(ctx, device.MAC); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	_, err := registry.Resolve(ctx, device.MAC)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Resolve() after delete error = %v, want ErrDeviceNotFound", err)
	}
	if registry.DeviceCount() != 0 {
		t.Errorf("DeviceCount() = %d, want 0", registry.DeviceCount())
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	registry, repo := setupRegistry(t)
	ctx := context.Background()

	for _, d := range []*Device{
		testDevice("a4:c1:38:00:55:66", "Landing Motion"),
		testDevice("a4:c1:38:00:66:77", "Porch Motion"),
	} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if registry.DeviceCount() != 2 {
		t.Errorf("DeviceCount() = %d, want 2", registry.DeviceCount())
	}
}

func TestRegistry_ResolveReturnsCopy(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	device := testDevice("a4:c1:38:00:77:88", "Original")
	if err := registry.RegisterDevice(ctx, device); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	first, err := registry.Resolve(ctx, device.MAC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	first.Name = "Mutated"

	second, err := registry.Resolve(ctx, device.MAC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if second.Name != "Original" {
		t.Errorf("cache was mutated through a resolved copy: Name = %q", second.Name)
	}
}
