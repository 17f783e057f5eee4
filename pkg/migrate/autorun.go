package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

// MaybeRunDev brings a dev database up to date on boot when WNW_AUTO_MIGRATE
// is set. Other environments migrate through cmd/migrate only.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	pool, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := ensureDialect(); err != nil {
		return err
	}

	before, err := goose.GetDBVersionContext(ctx, pool)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if err := Run(ctx, pool, DefaultDir, "up"); err != nil {
		return err
	}
	after, err := goose.GetDBVersionContext(ctx, pool)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"dir":          DefaultDir,
		"from_version": before,
		"to_version":   after,
	}), "dev auto-migrate complete")
	return nil
}
