package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-trip-alerts/internal/alerts"
	"github.com/mr1hm/go-trip-alerts/internal/api"
	"github.com/mr1hm/go-trip-alerts/internal/broadcast"
	"github.com/mr1hm/go-trip-alerts/internal/clients/geocoding"
	"github.com/mr1hm/go-trip-alerts/internal/clients/hazards"
	"github.com/mr1hm/go-trip-alerts/internal/clients/routes"
	"github.com/mr1hm/go-trip-alerts/internal/clients/weatherapi"
	"github.com/mr1hm/go-trip-alerts/internal/config"
	"github.com/mr1hm/go-trip-alerts/internal/logging"
	"github.com/mr1hm/go-trip-alerts/internal/metrics"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/notify"
	"github.com/mr1hm/go-trip-alerts/internal/position"
	"github.com/mr1hm/go-trip-alerts/internal/repository"
	"github.com/mr1hm/go-trip-alerts/internal/session"
	"github.com/mr1hm/go-trip-alerts/internal/trip"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := cfg.Providers
	routeClient := routes.NewClient(p.GoogleAPIKey, p.RoutesURL)
	geocoder := geocoding.NewClient(p.GoogleAPIKey, p.GeocodingURL)
	hazardClient := hazards.NewClient(p.GoogleAPIKey, p.HazardAlertsURL, p.AlertsLanguage)
	weatherClient := weatherapi.NewClient(p.WeatherAPIKey, p.WeatherAPIURL)

	hub := position.NewHub()
	machine := trip.NewMachine(routeClient, cfg.Navigation.GeofenceRadiusMeters)
	engine := alerts.NewEngine("hazards", hazardClient, cfg.Navigation.AlertRefetchDistanceMeters)

	sess := session.New(hub, machine, engine, db, cfg.Server.EventBuffer)
	sess.Start(ctx)

	// Notification pipeline
	notifications := broadcast.New[models.Notification]()
	pipeline := notify.NewPipeline(db, db, hub, weatherClient,
		notify.NewRecordingEmitter(db, notifications), cfg.Notifications.FixTimeout)

	var scheduler *notify.Scheduler
	if cfg.Notifications.Enabled {
		scheduler = notify.NewScheduler(pipeline, cfg.Notifications.Interval)
		scheduler.Start(ctx)
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(sess, db, geocoder, pipeline, notifications)
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}
	// Closing the broadcasters ends open event streams so Shutdown can finish.
	sess.Stop()
	notifications.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
