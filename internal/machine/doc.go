// Package machine manages the networked devices MOSTwo controls.
//
// A Machine is addressed by its (address, port) pair, which is unique
// across the table. Status changes go through SetStatus rather than the
// general Update so callers can hook status transitions.
//
// Deleting a machine deletes every event that references it.
package machine
