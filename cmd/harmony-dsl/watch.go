package main

import (
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aurabx/harmony-dsl/adapters/watch"
	"github.com/aurabx/harmony-dsl/core/formatter"
	"github.com/aurabx/harmony-dsl/core/validation"
)

func newWatchCmd(c *cli) *cobra.Command {
	var (
		domain   string
		gateway  string
		debounce time.Duration
		output   outputFlags
	)

	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Re-validate documents whenever they change",
		Long: `Validate documents once, then again each time one of them changes,
until interrupted. A change to --gateway re-validates every document.

Examples:
  harmony-dsl watch gateway.toml pipeline.toml
  harmony-dsl watch pipeline/*.toml --domain pipeline --gateway gateway.toml`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, fopts, err := output.formatter()
			if err != nil {
				return err
			}

			targets := make([]watch.Target, len(args))
			for i, path := range args {
				d, err := domainFor(domain, path)
				if err != nil {
					return err
				}
				targets[i] = watch.Target{Path: path, Domain: d}
			}

			cfg, err := c.setup()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.Debounce
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			w, err := watch.New(watch.Options{
				Catalog:     c.catalog(cfg),
				Logger:      c.logger,
				Debounce:    debounce,
				Resolver:    cfg.Registry.Resolver(),
				GatewayPath: gateway,
				OnReport: func(path string, rep *validation.Report, err error) {
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						f.FormatError(out, err)
						return
					}
					f.FormatReports(out, []formatter.FileReport{{File: path, Report: rep}}, fopts)
				},
			}, targets...)
			if err != nil {
				return err
			}

			w.ValidateAll()
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain of the documents")
	cmd.Flags().StringVarP(&gateway, "gateway", "g", "", "gateway config whose names resolve references")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-validating")
	output.register(cmd)
	return cmd
}
