// Command alert-check runs a single notification check, for use from cron or a
// similar external scheduler. It exits non-zero when the check fails.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-trip-alerts/internal/clients/weatherapi"
	"github.com/mr1hm/go-trip-alerts/internal/config"
	"github.com/mr1hm/go-trip-alerts/internal/logging"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/notify"
	"github.com/mr1hm/go-trip-alerts/internal/position"
	"github.com/mr1hm/go-trip-alerts/internal/repository"
)

func main() {
	lat := flag.String("lat", "", "latitude of the position to check")
	lng := flag.String("lng", "", "longitude of the position to check")
	test := flag.Bool("test", false, "run in test mode: always notify, skip dedup and filters")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	hub := position.NewHub()
	if *lat != "" || *lng != "" {
		coord, err := position.ParseManual(*lat, *lng)
		if err != nil {
			logging.Fatalf("Invalid position: %v", err)
		}
		if err := hub.Publish(models.Position{Coordinate: coord}, true); err != nil {
			logging.Fatalf("Invalid position: %v", err)
		}
	}

	pipeline := notify.NewPipeline(db, db, hub,
		weatherapi.NewClient(cfg.Providers.WeatherAPIKey, cfg.Providers.WeatherAPIURL),
		notify.NewRecordingEmitter(db, nil), cfg.Notifications.FixTimeout)

	mode := notify.ModeScheduled
	if *test {
		mode = notify.ModeTest
	}

	outcome := pipeline.RunCheck(context.Background(), mode)
	slog.Info("alert check complete", "mode", mode, "outcome", outcome)

	if outcome == notify.OutcomeFailed {
		db.Close()
		os.Exit(1)
	}
}
