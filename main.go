package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barberpos/api"
	"barberpos/internal/config"
	"barberpos/internal/sales"
	"barberpos/internal/sales/postgres"
	"barberpos/internal/users"
	"barberpos/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("error loading configuration: %v", err))
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var storage sales.Storage
	if cfg.DatabaseURL != "" {
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		store, err := postgres.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer store.Close()
		storage = store
	} else {
		logger.Info("no DATABASE_URL set, using in-memory storage")
		storage = sales.NewLocalStorage()
	}

	var directory sales.UserDirectory
	if cfg.UserServiceURL != "" {
		client := users.NewClient(cfg.UserServiceURL)
		defer client.Close()
		directory = client
	}

	salesService := sales.NewService(storage, directory, logger)

	r := gin.Default()
	api.InitRoutes(r, salesService, logger)

	if err := r.Run(cfg.Addr); err != nil {
		panic(fmt.Errorf("error trying to start server: %v", err))
	}
}
