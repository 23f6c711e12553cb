package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"latidos/config"
	"latidos/service"
	"latidos/version"

	"github.com/apex/log"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using system environment variables")
	}

	cfg := config.Load()
	setupLogging(cfg)

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	info := version.Get()
	log.WithFields(log.Fields{
		"version": info.Version,
		"commit":  info.Commit,
		"store":   cfg.StoreBackend,
		"llm":     cfg.LLMProvider,
	}).Info("Starting latidos")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewService(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create service")
	}
	defer svc.Close()

	if err := svc.Run(ctx); err != nil {
		log.WithError(err).Error("Service stopped with error")
		svc.Close()
		os.Exit(1)
	}
	log.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetHandler(jsonhandler.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
