// Package influxdb writes mostwo time-series points to InfluxDB v2.
//
// Three measurements are recorded:
//
//	machine_status  tags machine_id,type  field status
//	event_enabled   tags event_id,machine_id  field enabled
//	record_change   tags entity,action  field count
//
// Writes go through the client's non-blocking batching API. Failures
// surface asynchronously through SetOnError and never reach API callers.
package influxdb
