package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/avashista/jobquest/backend/repository"
	"github.com/avashista/jobquest/backend/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Setup structured logging with JSON format
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config := services.LoadConfig()
	server := services.NewServer(config)

	if config.Database.URL != "" {
		// Fail fast on an unreachable database before gorm opens its pool.
		pool, err := pgxpool.New(context.Background(), config.Database.URL)
		if err != nil {
			slog.Error("Invalid database URL", "error", err)
			os.Exit(1)
		}
		if err := pool.Ping(context.Background()); err != nil {
			slog.Error("Failed to reach database", "error", err)
			pool.Close()
			os.Exit(1)
		}
		pool.Close()

		db, err := gorm.Open(postgres.Open(config.Database.URL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormLogLevel(config.Database.LogLevel)),
		})
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to database")

		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxIdleConns(config.Database.MaxIdleConns)
			sqlDB.SetMaxOpenConns(config.Database.MaxOpenConns)
		}

		repo := repository.NewGORMRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			slog.Error("Database migration failed", "error", err)
			os.Exit(1)
		}
		server.SetDatabase(repo, db)

		if config.Database.Seed {
			seeder := services.NewDatabaseSeeder(repo)
			if err := seeder.SeedDatabase(); err != nil {
				slog.Error("Database seeding failed", "error", err)
			}
		}
	} else {
		slog.Warn("Database URL not configured, running without database")
	}

	if err := server.InitializeServices(); err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	server.Start()
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
