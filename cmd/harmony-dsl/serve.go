package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurabx/harmony-dsl/bootstrap"
	"github.com/aurabx/harmony-dsl/config"
)

func newServeCmd(c *cli) *cobra.Command {
	var hotReload bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP validation service",
		Long: `Start the HTTP validation service.

The server will:
  - Load configuration from harmony-dsl.yaml (or --config)
  - Or load configuration from HARMONY_* environment variables
  - Load every domain schema, failing on a broken override
  - Serve POST /v1/validate/{domain} and the schema endpoints

With a config file and --hot-reload, the static registry, log level and
request body limit follow edits to the file and SIGHUP.

Examples:
  harmony-dsl serve
  harmony-dsl serve --config /etc/harmony/harmony-dsl.yaml
  HARMONY_SERVER_PORT=9000 harmony-dsl serve`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup()
			if err != nil {
				return err
			}

			var holder *config.Holder
			if _, statErr := os.Stat(c.cfgFile); statErr == nil && hotReload {
				holder, err = config.NewHolder(c.cfgFile, c.logger)
				if err != nil {
					return err
				}
				defer holder.Stop()
				cfg = holder.Get()
			}

			app, err := bootstrap.New(cfg, c.logger)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}

			if holder != nil {
				app.Watch(holder)
				if err := holder.WatchFile(); err != nil {
					c.logger.Warn().Err(err).Msg("config file watch unavailable")
				}
				holder.WatchSignals()
			}

			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload the config file on change and SIGHUP")
	return cmd
}
