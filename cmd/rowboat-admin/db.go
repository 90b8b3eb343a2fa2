package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rowboat-io/rowboat/internal/bootstrap"
	"github.com/rowboat-io/rowboat/internal/devseed"
)

const defaultMigrationTimeout = 5 * time.Minute

// runMigrate applies database migrations.
func runMigrate(ctx *commandContext, _ []string) error {
	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			ctx.Logger.Error("close db failed", "error", closeErr)
		}
	}()

	migrateCtx, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()

	return bootstrap.RunMigrations(migrateCtx, db, ctx.Logger)
}

// runDBSeed applies migrations and seeds development exports.
func runDBSeed(ctx *commandContext, _ []string) error {
	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			ctx.Logger.Error("close db failed", "error", closeErr)
		}
	}()

	migrateCtx, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()

	if err := bootstrap.RunMigrations(migrateCtx, db, ctx.Logger); err != nil {
		return err
	}

	if !ctx.Config.IsDev {
		return errors.New("db-seed is for development databases; set DEV=true to confirm")
	}

	if err := devseed.Run(ctx.Ctx, db, &ctx.Config, ctx.Logger); err != nil {
		return fmt.Errorf("seed development exports: %w", err)
	}
	return nil
}
