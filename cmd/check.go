package cmd

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/devfinder/devfinder/internal/version"
)

func newCheckCmd() *cobra.Command {
	var includePrerelease bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check for a newer devfinder release",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := zerolog.Ctx(ctx)

			checker := version.NewChecker("", includePrerelease)

			result, err := checker.Check(ctx)
			if err != nil {
				log.Err(err).Msg("release check failed")

				return err
			}

			if result.UpdateAvailable {
				log.Info().
					Str("current", result.Current).
					Str("latest", result.Latest).
					Msg("update available")
			} else {
				log.Info().Str("current", result.Current).Msg("up to date")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&includePrerelease, "prerelease", false, "Include prerelease versions")

	return cmd
}
