package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/db"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/migrate"
)

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "directory with migration files")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] <command> [args]")
		fmt.Fprintln(os.Stderr, "commands: up up-by-one up-to down down-to redo status version")
		os.Exit(2)
	}
	command := args[0]

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "storefront-migrate"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, "no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to get sql handle", err)
		os.Exit(1)
	}

	if err := migrate.Run(ctx, sqlDB, *dir, command, args[1:]...); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, fmt.Sprintf("goose %s complete", command))
}
