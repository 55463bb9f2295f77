// Package database はプロファイルストアのデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
// storeURLはPostgreSQLまたはSQLite（sqlite3://）の接続URLを指定する。
func NewMigrator(storeURL string) (*migrate.Migrate, error) {
	switch DriverFor(storeURL) {
	case DriverPostgres:
	case DriverSQLite:
		if err := ensureSQLiteDir(SQLitePath(storeURL)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("migrations are not supported for store url: %s", storeURL)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, storeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations はすべてのマイグレーションを適用する。
// すでに最新の場合はエラーなしで返る。
func RunMigrations(storeURL string) error {
	m, err := NewMigrator(storeURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
