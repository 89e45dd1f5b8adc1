package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imageforgelabs/imageforge/internal/auth"
	"github.com/imageforgelabs/imageforge/internal/billing"
	"github.com/imageforgelabs/imageforge/internal/clock"
	"github.com/imageforgelabs/imageforge/internal/config"
	"github.com/imageforgelabs/imageforge/internal/db"
	"github.com/imageforgelabs/imageforge/internal/entitlement"
	"github.com/imageforgelabs/imageforge/internal/generation"
	"github.com/imageforgelabs/imageforge/internal/migration"
	"github.com/imageforgelabs/imageforge/internal/observability"
	"github.com/imageforgelabs/imageforge/internal/providers/replicate"
	redismodule "github.com/imageforgelabs/imageforge/internal/redis"
	"github.com/imageforgelabs/imageforge/internal/seed"
	"github.com/imageforgelabs/imageforge/internal/server"
	"github.com/imageforgelabs/imageforge/internal/subscription"
	"github.com/imageforgelabs/imageforge/internal/tier"
	tierservice "github.com/imageforgelabs/imageforge/internal/tier/service"
	"github.com/imageforgelabs/imageforge/internal/usage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imageforge",
		Short: "Imageforge API server",
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(fx.Invoke(func(gdb *gorm.DB) error {
				return migration.AutoMigrate(gdb)
			}))
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate and install the default tier catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(fx.Invoke(func(gdb *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
				if err := migration.AutoMigrate(gdb); err != nil {
					return err
				}
				return seed.Tiers(gdb, node, log)
			}))
		},
	}
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redismodule.Module,
		auth.Module,
		tier.Module,
		subscription.Module,
		usage.Module,
		entitlement.Module,
		replicate.Module,
		generation.Module,
		billing.Module,
		server.Module,
		// A catalog without a valid free tier must fail the deploy.
		fx.Invoke(tierservice.VerifyCatalog),
	)
	app.Run()
}

func runOnce(invokes ...fx.Option) error {
	opts := []fx.Option{
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
	}
	opts = append(opts, invokes...)
	app := fx.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(context.Background())
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
