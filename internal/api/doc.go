// Package api implements the HTTP REST API and WebSocket change feed for
// mostwo.
//
// Routes live under /api/v1. Machines and events are served through their
// repositories; every successful mutation is then fanned out, best-effort,
// to the audit trail, subscribed WebSocket clients, MQTT, Prometheus
// counters and InfluxDB.
//
// # Security
//
// Clients log in with email and password and send the returned JWT as a
// bearer token. The WebSocket endpoint takes a single-use ticket instead,
// obtained from POST /auth/ws-ticket, so tokens never appear in URLs.
// The audit trail and user administration require a superuser.
//
// # Graceful Degradation
//
// MQTT and InfluxDB are optional. Without them the API serves every
// route; only the corresponding notifications are skipped.
package api
