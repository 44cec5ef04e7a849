package cmd

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/devfinder/devfinder/internal/adminhttp"
	"github.com/devfinder/devfinder/internal/auth"
	"github.com/devfinder/devfinder/internal/config"
	"github.com/devfinder/devfinder/internal/devices"
	"github.com/devfinder/devfinder/internal/history"
	"github.com/devfinder/devfinder/internal/logging"
	"github.com/devfinder/devfinder/internal/metrics"
	"github.com/devfinder/devfinder/internal/scan"
	"github.com/devfinder/devfinder/internal/version"
)

const defaultConfigPath = "/etc/devfinder/config.yaml"

func newRunCmd() *cobra.Command { //nolint:funlen
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the devfinder dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := zerolog.Ctx(ctx)

			log.Info().
				Str("version", version.GetVersion()).
				Str("build_time", version.GetBuildTime()).
				Msg("devfinder starting")

			path := cfgFile
			if path == "" {
				path = defaultConfigPath
			}

			cfg, err := config.Load(path)
			if errors.Is(err, os.ErrNotExist) {
				log.Warn().Str("config", path).Msg("config file not found, using defaults")

				cfg = config.Default()
				cfg.Path = path
			} else if err != nil {
				return err
			}

			metrics.RegisterCollectors()
			metrics.SetService(cfg.AppName)
			metrics.StartScanRateTicker()
			log.Info().Str("config", path).Msg("starting")

			registry := devices.NewRegistry(cfg.Scan.Seed)
			registry.LoadInventory(cfg.Inventory)
			log.Info().Int("devices", registry.Len()).Msg("inventory loaded")

			guard := devices.NewGuard()
			feed := history.NewFeed(cfg.History.MaxEntries, cfg.History.Enabled)
			scanManager := scan.NewManagerFromConfig(cfg.Scan)

			authService, err := auth.NewService(cfg)
			if err != nil {
				return err
			}

			var checker *version.Checker
			if cfg.Update.Enabled {
				checker = version.NewChecker("", cfg.Update.IncludePrerelease)
			}

			// Watch the config file so user and inventory edits apply without restart
			watcher, err := config.NewWatcher(path)
			if err == nil {
				watcher.OnReload(func(next *config.Config) {
					logging.SetLevel(next.Log.Level)
					registry.LoadInventory(next.Inventory)
					cfg.Reload(next)
					log.Info().Str("level", logging.Level()).Msg("config reloaded")
				})
				watcher.Watch(ctx)
			} else {
				log.Warn().Err(err).Msg("config watcher unavailable")
			}

			if cfg.HTTP.Enabled {
				admin := adminhttp.NewServer(adminhttp.Deps{
					Config:      cfg,
					Registry:    registry,
					Guard:       guard,
					ScanManager: scanManager,
					Feed:        feed,
					AuthService: authService,
					Checker:     checker,
				})
				if err := admin.Start(ctx); err != nil {
					return err
				}
			}

			metrics.SetReady(true)
			defer metrics.SetReady(false)

			<-ctx.Done()

			return nil
		},
	}

	return cmd
}
