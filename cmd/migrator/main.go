package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag   = "storage-path"
	migrationPathFlag = "migrations-path"
	stepsFlag         = "steps"
	downFlag          = "down"

	storageEnvName        = "STOREFRONT_SQL_DB"
	defaultMigrationsPath = "./migrations"
)

type flags struct {
	storagePath    string
	migrationsPath string
	steps          int
	down           bool
}

func main() {
	f := getFlagsValues()
	validateFlags(f)
	makeMigrations(f)
}

type MigrationLogger struct {
	logger  *slog.Logger
	verbose bool
}

func NewMigrationLogger() *MigrationLogger {
	return &MigrationLogger{
		logger:  slog.Default(),
		verbose: true,
	}
}

func (ml *MigrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(fmt.Sprintf(format, v...))
}

func (ml *MigrationLogger) Verbose() bool {
	return ml.verbose
}

// getFlagsValues falls back to STOREFRONT_SQL_DB for the storage path.
func getFlagsValues() flags {
	storagePath := pflag.StringP(
		storagePathFlag, "s", os.Getenv(storageEnvName),
		"postgres dsn without scheme, user:pass@host:port/db",
	)
	migrationsPath := pflag.StringP(
		migrationPathFlag, "m", defaultMigrationsPath, "migrations directory",
	)
	steps := pflag.IntP(stepsFlag, "n", 0, "apply n migrations, all when 0")
	down := pflag.Bool(downFlag, false, "roll back instead of applying")
	pflag.Parse()

	return flags{
		storagePath:    strings.TrimPrefix(*storagePath, "postgres://"),
		migrationsPath: *migrationsPath,
		steps:          *steps,
		down:           *down,
	}
}

func validateFlags(f flags) {
	var errs []error

	if f.storagePath == "" {
		errs = append(errs, fmt.Errorf(
			"--%s flag or %s env: required", storagePathFlag, storageEnvName,
		))
	}

	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationPathFlag))
	}

	if f.steps < 0 {
		errs = append(errs, fmt.Errorf("--%s flag: must not be negative", stepsFlag))
	}

	if len(errs) != 0 {
		slog.Error("too few args", "err", errors.Join(errs...))
		fallDown()
	}
}

func makeMigrations(f flags) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", f.migrationsPath),
		fmt.Sprintf("pgx5://%s", f.storagePath),
	)
	if err != nil {
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}
	defer m.Close()

	m.Log = NewMigrationLogger()

	if err := apply(m, f); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return
		}
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}
	m.Log.Printf("migration applied\n")
}

func apply(m *migrate.Migrate, f flags) error {
	switch {
	case f.steps != 0 && f.down:
		return m.Steps(-f.steps)
	case f.steps != 0:
		return m.Steps(f.steps)
	case f.down:
		return m.Down()
	default:
		return m.Up()
	}
}

func fallDown() {
	os.Exit(2)
}
