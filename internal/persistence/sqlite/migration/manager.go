package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and executor. A nil logger discards output.
func NewManager(scanner *Scanner, executor *Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration. It stops at the first failure; earlier
// migrations of the same run stay applied.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	for _, mig := range status.Pending {
		if err := m.executor.Execute(ctx, mig); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", mig.Version, "file", mig.FilePath, "error", err)
			return err
		}
		m.logger.InfoContext(ctx, "migration applied", "version", mig.Version, "description", mig.Description)
	}
	m.logger.InfoContext(ctx, "schema migrated",
		"from_version", status.CurrentVersion,
		"to_version", status.Pending[len(status.Pending)-1].Version,
		"applied", len(status.Pending),
	)
	return nil
}

// Status compares the migration files with the schema_migrations table.
// Applied files must still exist with an unchanged checksum, and the
// available versions must form a continuous sequence.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}
	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}
	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	done := make(map[string]struct{}, len(applied))
	status := Status{Applied: applied}
	for _, am := range applied {
		done[am.Version] = struct{}{}
		status.CurrentVersion = am.Version
	}
	for _, mig := range available {
		if _, ok := done[mig.Version]; !ok {
			status.Pending = append(status.Pending, mig)
		}
	}
	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for i, mig := range available {
		n := versionNumber(mig.Version)
		if i > 0 && n != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, versionNumber(available[i-1].Version)+1)
		}
		byVersion[n] = mig
	}
	for _, am := range applied {
		mig, ok := byVersion[versionNumber(am.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, am.Version)
		}
		if am.Checksum != "" && am.Checksum != mig.Checksum {
			return newMigrationError(am.Version, mig.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
