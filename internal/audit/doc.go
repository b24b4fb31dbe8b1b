// Package audit records who changed what, for the audit_logs table.
//
// Entries are written asynchronously by the API layer after a mutation
// succeeds, and read back newest first with optional filters.
package audit
