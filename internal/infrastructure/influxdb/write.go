package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementMachineStatus = "machine_status"
	MeasurementEventEnabled  = "event_enabled"
	MeasurementRecordChange  = "record_change"
)

// WriteMachineStatus records a machine's status after a change.
// Nothing is written when the client is not connected.
func (c *Client) WriteMachineStatus(machineID, machineType, status string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(machineStatusPoint(machineID, machineType, status, time.Now()))
}

// WriteEventEnabled records an event's enabled flag after a toggle.
func (c *Client) WriteEventEnabled(eventID, machineID string, enabled bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(eventEnabledPoint(eventID, machineID, enabled, time.Now()))
}

// WriteRecordChange counts one mutation of entity with the given action.
func (c *Client) WriteRecordChange(entity, action string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(recordChangePoint(entity, action, time.Now()))
}

func machineStatusPoint(machineID, machineType, status string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementMachineStatus,
		map[string]string{
			"machine_id": machineID,
			"type":       machineType,
		},
		map[string]interface{}{
			"status": status,
		},
		ts,
	)
}

func eventEnabledPoint(eventID, machineID string, enabled bool, ts time.Time) *write.Point {
	tags := map[string]string{"event_id": eventID}
	if machineID != "" {
		tags["machine_id"] = machineID
	}
	return write.NewPoint(
		MeasurementEventEnabled,
		tags,
		map[string]interface{}{"enabled": enabled},
		ts,
	)
}

func recordChangePoint(entity, action string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementRecordChange,
		map[string]string{
			"entity": entity,
			"action": action,
		},
		map[string]interface{}{"count": int64(1)},
		ts,
	)
}
