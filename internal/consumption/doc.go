// Package consumption coordinates device consumption across the device
// registry, the remote user directory and the remote monitoring service.
//
// It owns the three operations at the heart of VoltWatch:
//
//   - Associate binds a device to a user after verifying both exist.
//     The device lookup and the directory check run concurrently; when
//     both are missing the error names both, so a caller fixing its data
//     sees the full picture in one round trip.
//
//   - Ingest accepts a device's reported hourly consumption, validates
//     the device and its owner, records the value to the local history
//     and dispatches an alert when the value exceeds the device's
//     ceiling. Alert delivery completes before Ingest returns.
//
//   - Report aggregates a user's consumption for one calendar day into
//     hourly buckets, using the site's local timezone to decide which
//     hour a sample belongs to.
//
// Transport failures from the remote services keep their rpc error
// classes and are never converted into not-found results.
package consumption
