// Package logging provides structured logging for MOSTwo Core.
//
// It wraps log/slog so every entry carries the service name and build
// version, and so components can derive child loggers with Component.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Never log secrets, tokens or password hashes. The one exception is the
// generated first-superuser password, which is logged once at warn level
// because it is otherwise unrecoverable.
package logging
