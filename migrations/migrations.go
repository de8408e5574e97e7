package migrations

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/gameplatform/role-service/internal/config"
)

// Manager runs schema migrations against the role directory database.
type Manager struct {
	config *config.DatabaseConfig
	logger *zap.Logger
}

// NewManager creates a new instance of Manager.
func NewManager(config *config.DatabaseConfig, logger *zap.Logger) *Manager {
	return &Manager{config: config, logger: logger}
}

func (m *Manager) newMigrator() (*migrate.Migrate, error) {
	databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		m.config.User, m.config.Password, m.config.Host, m.config.Port, m.config.DBName, m.config.SSLMode)
	migrator, err := migrate.New(fmt.Sprintf("file://%s", m.config.MigrationsPath), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}

// MigrateUp applies all pending migrations.
func (m *Manager) MigrateUp() error {
	migrator, err := m.newMigrator()
	if err != nil {
		m.logger.Error("Failed to create migrator", zap.Error(err))
		return err
	}
	defer migrator.Close()

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		m.logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
	} else {
		m.logger.Info("Migrations applied successfully")
	}
	return nil
}

// MigrateDown rolls every migration back.
func (m *Manager) MigrateDown() error {
	migrator, err := m.newMigrator()
	if err != nil {
		m.logger.Error("Failed to create migrator", zap.Error(err))
		return err
	}
	defer migrator.Close()

	err = migrator.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		m.logger.Error("Failed to rollback migrations", zap.Error(err))
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to rollback")
	} else {
		m.logger.Info("Migrations rolled back successfully")
	}
	return nil
}

// Version returns the current migration version.
func (m *Manager) Version() (uint, bool, error) {
	migrator, err := m.newMigrator()
	if err != nil {
		return 0, false, err
	}
	defer migrator.Close()

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, dirty, nil
}
