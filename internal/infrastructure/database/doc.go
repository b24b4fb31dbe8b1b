// Package database provides SQLite connectivity for MOSTwo Core.
//
// This package manages:
//   - Opening the database with WAL mode, busy timeout and foreign keys on
//   - Schema migrations loaded from an fs.FS (embedded by package migrations)
//   - Transaction scoping via WithTx
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Each migration is applied in its own transaction.
package database
