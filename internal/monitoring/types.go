package monitoring

import (
	"encoding/json"
	"strconv"
	"time"
)

// Amount is a consumption value as received on the wire.
//
// The monitoring service serialises amounts as strings ("12.5"), but
// older deployments emit bare numbers (12.5). Both decode into the
// textual form; Float performs the actual numeric parse.
type Amount string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

// Float parses the amount as a float64.
func (a Amount) Float() (float64, error) {
	return strconv.ParseFloat(string(a), 64)
}

// Sample is one meter reading held by the monitoring service.
// The interval start arrives on the wire as "hourStart".
type Sample struct {
	DeviceID         string    `json:"deviceId"`
	Timestamp        time.Time `json:"hourStart"`
	TotalConsumption Amount    `json:"totalConsumption"`
}
