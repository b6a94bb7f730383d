package monitoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
)

// commandConsumptionPerDevices fetches a day's samples for a set of devices.
const commandConsumptionPerDevices = "consumption_per_devices"

// DateFormat is the wire format for report dates.
const DateFormat = "2006-01-02"

// Requester issues correlated requests over the bus. *rpc.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, topic string, payload any) (json.RawMessage, error)
}

// Client queries the remote consumption monitoring service.
type Client struct {
	rpc    Requester
	prefix string
}

// NewClient creates a monitoring client using the given topic prefix,
// typically config.RPC.MonitoringPrefix.
func NewClient(rpc Requester, prefix string) *Client {
	return &Client{rpc: rpc, prefix: prefix}
}

type consumptionRequest struct {
	DeviceIDs []string `json:"deviceIds"`
	Date      string   `json:"date"`
}

// ConsumptionPerDevices returns all samples recorded on the given date
// for the given devices. The date is a calendar day in "2006-01-02" form.
//
// An empty device set is forwarded as-is; the remote answers with an
// empty sample list and that is a valid result, not an error.
func (c *Client) ConsumptionPerDevices(ctx context.Context, deviceIDs []string, date string) ([]Sample, error) {
	topic := mqtt.Topics{}.RPCRequest(c.prefix, commandConsumptionPerDevices)

	req := consumptionRequest{DeviceIDs: deviceIDs, Date: date}
	if req.DeviceIDs == nil {
		req.DeviceIDs = []string{}
	}

	raw, err := c.rpc.Request(ctx, topic, req)
	if err != nil {
		return nil, fmt.Errorf("fetch consumption for %s: %w", date, err)
	}

	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("decode monitoring reply: %w", err)
	}

	return samples, nil
}
