// Package device provides the Device Registry for VoltWatch Core.
//
// The Device Registry is the catalogue of metered physical devices, each
// optionally owned by a user from the remote user directory and carrying a
// per-hour consumption ceiling. It exposes CRUD operations plus the
// user-scoped queries the consumption coordinator depends on.
//
// Persistence is SQLite via Repository/SQLiteRepository; per-record
// read-modify-write atomicity is provided by the single UPDATE statement,
// so concurrent association attempts cannot produce lost updates.
//
// Usage:
//
//	repo := device.NewSQLiteRepository(db.DB)
//	dev, err := repo.GetByID(ctx, id)
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // 404
//	}
package device
