// migrate применяет встроенные SQL-миграции к базе из конфига.
//
//	go run ./cmd/migrate -config local.yaml -direction up
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pribylovaa/tasker/internal/config"
	"github.com/pribylovaa/tasker/internal/storage/postgres"
)

func main() {
	var (
		configPath string
		direction  string
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&direction, "direction", "up", "migration direction: up or down")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("config_load_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if err := postgres.Migrate(cfg.DB.DatabaseURL, direction); err != nil {
		log.Error("migrations_failed",
			slog.String("direction", direction),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	log.Info("migrations_applied", slog.String("direction", direction))
}
