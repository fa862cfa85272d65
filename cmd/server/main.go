package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pesagate/config"
	"pesagate/internal/database"
	"pesagate/internal/events"
	"pesagate/internal/logger"
	"pesagate/internal/repository"
	"pesagate/internal/router"
	"pesagate/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	zlog, err := logger.New(cfg.Server.Env, cfg.Daraja.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}

	// Admin-saved settings override the environment.
	settingRepo := repository.NewSettingRepository(db)
	if stored, err := settingRepo.AsMap(context.Background()); err == nil {
		cfg.ApplySettings(stored)
	} else {
		zlog.Warn("could not load stored settings", zap.Error(err))
	}

	var listeners []service.PaymentListener
	var kafkaSink *events.KafkaPublisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaSink = events.NewKafkaPublisher(cfg.Events, zlog)
		listeners = append(listeners, kafkaSink)
		zlog.Info("kafka payment-event sink enabled", zap.Strings("brokers", cfg.Events.KafkaBrokers))
	}

	engine := router.Setup(cfg, db, zlog, listeners...)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		zlog.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			zlog.Error("kafka close", zap.Error(err))
		}
	}
	zlog.Info("server stopped")
}
