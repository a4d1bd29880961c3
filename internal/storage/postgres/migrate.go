package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate применяет встроенные SQL-миграции в направлении "up" или "down".
// Отсутствие изменений ошибкой не считается.
func Migrate(dsn, direction string) error {
	const op = "storage.postgres.Migrate"

	if dsn == "" {
		return fmt.Errorf("%s: DATABASE_URL is not set", op)
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("%s: direction must be up or down, got %q", op, direction)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("%s: source: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
