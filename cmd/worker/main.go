package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GoSim-25-26J-441/grant-registry-backend/config"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: worker <migrate|stats>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.App.LogLevel, cfg.App.Environment)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, cfg, log)
	case "stats":
		err = runStats(ctx, cfg, os.Stdout)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.WithError(err).Fatal(os.Args[1])
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("schema up to date")
	return nil
}
