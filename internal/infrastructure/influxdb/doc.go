// Package influxdb provides InfluxDB connectivity for VoltWatch.
//
// It wraps the official influxdb-client-go v2 library with VoltWatch-specific
// patterns for connection management, consumption writes, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Hourly consumption values as devices report them
//   - Threshold alert occurrences alongside the consumption series
//
// The monitoring service remains the system of record for raw samples;
// this local history feeds dashboards and ad-hoc queries without a
// round trip over the RPC bus.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "voltwatch",
//	    Bucket: "consumption",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteConsumption("7f3c9a12-...", "a1b2c3d4-...", 12.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
package influxdb
