// assetctl is a local administration CLI for the tenant asset store. It
// builds the service straight from configuration and operates on the backing
// stores directly, without going through the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/config"
)

var (
	configFile string
	envPrefix  string
)

func buildService(ctx context.Context) (simpleassets.Service, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithFile(configFile))
	}
	opts = append(opts, config.WithEnv(envPrefix))

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	return cfg.BuildService(ctx, logger)
}

func main() {
	root := &cobra.Command{
		Use:           "assetctl",
		Short:         "Manage tenant custom assets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&envPrefix, "env-prefix", "ASSETS_", "prefix for environment overrides")

	root.AddCommand(
		newRegisterCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newRenameCmd(),
		newReplaceCmd(),
		newListCmd(),
		newUseCmd(),
		newLocateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
