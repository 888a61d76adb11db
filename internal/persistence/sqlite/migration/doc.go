// Package migration applies versioned SQL schema migrations to a SQLite
// database.
//
// Migration files are named {version}_{description}.sql (for example
// "001_initial_schema.sql") and are read from any fs.FS, typically an
// embedded directory. Applied versions are tracked in the schema_migrations
// table; each migration runs in its own transaction.
//
// Example usage:
//
//	manager := NewManager(NewScanner(files, "."), NewExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
