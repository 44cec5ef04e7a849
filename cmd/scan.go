package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/devfinder/devfinder/internal/config"
	customerrors "github.com/devfinder/devfinder/internal/errors"
	"github.com/devfinder/devfinder/internal/scan"
)

func newScanCmd() *cobra.Command {
	var (
		method   string
		simulate bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a one-shot device scan and print the results as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := zerolog.Ctx(ctx)

			path := cfgFile
			if path == "" {
				path = defaultConfigPath
			}

			cfg, err := config.Load(path)
			if errors.Is(err, os.ErrNotExist) {
				cfg = config.Default()
			} else if err != nil {
				return err
			}

			if simulate {
				cfg.Scan.Simulate = true
			}

			manager := scan.NewManagerFromConfig(cfg.Scan)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			if method == "" {
				results, err := manager.ScanAll(ctx)
				if err != nil {
					return err
				}

				for m, found := range results {
					log.Info().Str("method", string(m)).Int("devices", len(found)).Msg("scan finished")
				}

				return enc.Encode(results)
			}

			parsed, ok := scan.ParseMethod(method)
			if !ok {
				return fmt.Errorf("%w: %s", customerrors.ErrUnknownScanMethod, method)
			}

			results, err := manager.Scan(ctx, parsed)
			if err != nil {
				return err
			}

			log.Info().Str("method", method).Int("devices", len(results)).Msg("scan finished")

			return enc.Encode(results)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "Scan method: wifi, bluetooth or camera (default: all)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Force simulated scanners")

	return cmd
}
