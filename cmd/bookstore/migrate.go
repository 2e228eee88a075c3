package main

import (
	"fmt"
	"os"

	"github.com/fjod/go_bookstore/internal/config"
	"github.com/fjod/go_bookstore/internal/logger"
	"github.com/fjod/go_bookstore/internal/repository"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabase(configFile)
			if err != nil {
				return err
			}
			log := logger.New("bookstore", os.Stdout, logger.ParseLevel(cfg.LogLevel))

			creds := credentials(cfg)
			repo, err := repository.NewRepository(creds)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer repo.Close()

			if err := repo.RunMigrations(creds); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations applied", "driver", cfg.DBDriver)
			return nil
		},
	}
}

func credentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Driver:            cfg.DBDriver,
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		SQLitePath:        cfg.SQLitePath,
		MigrationsDirPath: cfg.MigrationsPath,
	}
}
