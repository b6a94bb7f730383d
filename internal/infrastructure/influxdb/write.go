package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteConsumption records one ingested hourly consumption value.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Dropped writes (disconnected client) are silent: the consumption
// history is a convenience for dashboards, not the system of record.
//
// Parameters:
//   - deviceID: The reporting device
//   - userID: The owning user ("" when unassociated history is kept)
//   - value: Consumption for the hour, in kWh
func (c *Client) WriteConsumption(deviceID, userID string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"consumption",
		map[string]string{
			"device_id": deviceID,
			"user_id":   userID,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAlert records a threshold breach alongside the consumption series,
// tagging the value that triggered it and the ceiling it crossed.
func (c *Client) WriteAlert(deviceID, userID string, value, ceiling float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"consumption_alerts",
		map[string]string{
			"device_id": deviceID,
			"user_id":   userID,
		},
		map[string]interface{}{
			"value":   value,
			"ceiling": ceiling,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
