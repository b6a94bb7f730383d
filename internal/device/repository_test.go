package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
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
			id TEXT PRIMARY KEY,
			user_id TEXT,
			description TEXT NOT NULL,
			max_hourly_consumption REAL NOT NULL DEFAULT 0 CHECK (max_hourly_consumption >= 0),
			address TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_user_id ON devices(user_id);
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

// testDevice creates a device for testing.
func testDevice(description string) *Device {
	return &Device{
		ID:                   uuid.NewString(),
		Description:          description,
		MaxHourlyConsumption: 100,
		Address:              "Strada Energiei 12, Bucharest",
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice("kitchen smart meter")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.ID != dev.ID {
		t.Errorf("ID = %q, want %q", got.ID, dev.ID)
	}
	if got.Description != dev.Description {
		t.Errorf("Description = %q, want %q", got.Description, dev.Description)
	}
	if got.MaxHourlyConsumption != 100 {
		t.Errorf("MaxHourlyConsumption = %v, want 100", got.MaxHourlyConsumption)
	}
	if got.UserID != nil {
		t.Errorf("UserID = %v, want nil for a fresh device", *got.UserID)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestSQLiteRepository_Create_Duplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice("boiler meter")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := testDevice("another meter")
	dup.ID = dev.ID
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Create() duplicate error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_Create_Invalid(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Device)
	}{
		{"empty id", func(d *Device) { d.ID = "" }},
		{"non-uuid id", func(d *Device) { d.ID = "dev-1" }},
		{"empty description", func(d *Device) { d.Description = "" }},
		{"empty address", func(d *Device) { d.Address = "" }},
		{"negative ceiling", func(d *Device) { d.MaxHourlyConsumption = -1 }},
		{"empty user id", func(d *Device) { empty := ""; d.UserID = &empty }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := testDevice("bad device")
			tt.mutate(dev)
			if err := repo.Create(ctx, dev); !errors.Is(err, ErrInvalidDevice) {
				t.Errorf("Create() error = %v, want ErrInvalidDevice", err)
			}
		})
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Update_Association(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice("garage charger")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	userID := uuid.NewString()
	dev.UserID = &userID
	if err := repo.Update(ctx, dev); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Errorf("UserID = %v, want %q", got.UserID, userID)
	}

	// Re-association overwrites the previous owner.
	otherUser := uuid.NewString()
	got.UserID = &otherUser
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() re-associate error = %v", err)
	}
	got, err = repo.GetByID(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID == nil || *got.UserID != otherUser {
		t.Errorf("UserID after re-association = %v, want %q", got.UserID, otherUser)
	}
}

func TestSQLiteRepository_Update_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	dev := testDevice("ghost")
	if err := repo.Update(context.Background(), dev); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_ListByUser(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	userID := uuid.NewString()
	for i := 0; i < 3; i++ {
		dev := testDevice("meter")
		dev.UserID = &userID
		if err := repo.Create(ctx, dev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	unowned := testDevice("unowned meter")
	if err := repo.Create(ctx, unowned); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	owned, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(owned) != 3 {
		t.Errorf("ListByUser() returned %d devices, want 3", len(owned))
	}

	none, err := repo.ListByUser(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("ListByUser() unknown user error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListByUser() unknown user returned %d devices, want 0", len(none))
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List() returned %d devices, want 4", len(all))
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := testDevice("removable meter")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, dev.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(ctx, dev.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
	}

	if err := repo.Delete(ctx, dev.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_DeleteByUser(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	userID := uuid.NewString()
	for i := 0; i < 2; i++ {
		dev := testDevice("meter")
		dev.UserID = &userID
		if err := repo.Create(ctx, dev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	count, err := repo.DeleteByUser(ctx, userID)
	if err != nil {
		t.Fatalf("DeleteByUser() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByUser() count = %d, want 2", count)
	}

	// A user with no devices is a NotFound, matching the inbound
	// remove_user_devices contract.
	if _, err := repo.DeleteByUser(ctx, userID); !errors.Is(err, ErrNoUserDevices) {
		t.Errorf("DeleteByUser() empty error = %v, want ErrNoUserDevices", err)
	}
}

func TestDevice_Copy(t *testing.T) {
	userID := uuid.NewString()
	dev := testDevice("copied meter")
	dev.UserID = &userID

	cpy := dev.Copy()
	otherUser := uuid.NewString()
	cpy.UserID = &otherUser

	if *dev.UserID != userID {
		t.Error("mutating the copy changed the original")
	}
}

func TestUpdate_Apply(t *testing.T) {
	dev := testDevice("patched meter")
	newDesc := "updated description"
	newMax := 250.0

	Update{Description: &newDesc, MaxHourlyConsumption: &newMax}.Apply(dev)

	if dev.Description != newDesc {
		t.Errorf("Description = %q, want %q", dev.Description, newDesc)
	}
	if dev.MaxHourlyConsumption != newMax {
		t.Errorf("MaxHourlyConsumption = %v, want %v", dev.MaxHourlyConsumption, newMax)
	}
	if dev.Address != "Strada Energiei 12, Bucharest" {
		t.Errorf("Address changed unexpectedly: %q", dev.Address)
	}
}
