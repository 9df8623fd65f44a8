package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

const (
	snapshotMeasurement = "thermostat"
	commandMeasurement  = "thermostat_command"
)

// RecordSnapshot writes one point per snapshot, one field per reading, stamped
// with the snapshot time.
func (c *Client) RecordSnapshot(snap proxy.Snapshot) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{}, len(snap.Readings)+1)
	for _, r := range snap.Readings {
		fields[r.Point] = r.Value
	}
	fields["read_failures"] = len(snap.Failures)

	c.writeAPI.WritePoint(write.NewPoint(
		snapshotMeasurement,
		map[string]string{"device": c.device},
		fields,
		snap.Time,
	))
}

// RecordApply writes one point per command entry, tagged with the point name
// and whether it was accepted.
func (c *Client) RecordApply(_ proxy.Command, res proxy.ApplyResult) {
	if !c.IsConnected() {
		return
	}

	now := time.Now()
	for _, o := range res.Outcomes {
		accepted := "true"
		fields := map[string]interface{}{"value": o.Value}
		if o.Accepted() {
			fields["raw"] = float64(o.Raw)
		} else {
			accepted = "false"
			fields["error"] = o.Err.Error()
		}

		c.writeAPI.WritePoint(write.NewPoint(
			commandMeasurement,
			map[string]string{
				"device":   c.device,
				"point":    o.Point,
				"accepted": accepted,
			},
			fields,
			now,
		))
	}
}
