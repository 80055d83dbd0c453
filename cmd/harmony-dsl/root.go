package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aurabx/harmony-dsl/bootstrap"
	"github.com/aurabx/harmony-dsl/config"
	"github.com/aurabx/harmony-dsl/core/catalog"
	"github.com/aurabx/harmony-dsl/core/formatter"
	"github.com/aurabx/harmony-dsl/core/schema"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

// errInvalid reports that a document or schema failed its check. The
// outcome has already been printed.
var errInvalid = errors.New("validation failed")

// usageError marks a bad invocation.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs wraps a cobra argument validator so that its errors exit with
// the usage status.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// cli carries the global flags and the state built from them.
type cli struct {
	cfgFile   string
	logLevel  string
	logFormat string

	logOut io.Writer
	logger zerolog.Logger
}

// setup loads the configuration and builds the logger. Flags override the
// configured log settings.
func (c *cli) setup() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(c.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, format := cfg.Logging.Level, cfg.Logging.Format
	if c.logLevel != "" {
		level = c.logLevel
	}
	if c.logFormat != "" {
		format = c.logFormat
	}
	c.logger = bootstrap.NewLogger(level, format, c.logOut)
	return cfg, nil
}

func (c *cli) catalog(cfg *config.Config) *catalog.Catalog {
	opts := []catalog.Option{catalog.WithLogger(c.logger)}
	if cfg.Schemas.Dir != "" {
		opts = append(opts, catalog.WithOverrideDir(cfg.Schemas.Dir))
	}
	return catalog.New(opts...)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "harmony-dsl",
		Short: "Schema validation for Harmony configuration",
		Long: `harmony-dsl checks Harmony configuration documents against the schema of
their domain: gateway, pipeline, mesh or remote-ingress.

Quick start:
  harmony-dsl validate gateway.toml
  harmony-dsl validate pipelines/*.toml --domain pipeline --gateway gateway.toml

Schemas:
  harmony-dsl schema list        # Bundled schemas and versions
  harmony-dsl schema diff a b    # Breaking changes between two releases

Service:
  harmony-dsl serve              # HTTP validator for the management API`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", config.DefaultPath, "config file path")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "log format: json or console")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		newValidateCmd(c),
		newSchemaCmd(c),
		newServeCmd(c),
		newWatchCmd(c),
		newVersionCmd(),
	)
	return root
}

// run executes the command line and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{logOut: stderr, logger: zerolog.Nop()}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errInvalid) {
		return exitInvalid
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		fmt.Fprintln(stderr, "Run 'harmony-dsl --help' for usage.")
		return exitUsage
	}
	return exitInvalid
}

// outputFlags are the formatting flags shared by commands that print
// results.
type outputFlags struct {
	format   string
	noHeader bool
	compact  bool
	maxWidth int
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "o", "text", "output format: text, json, yaml")
	cmd.Flags().BoolVar(&o.noHeader, "no-header", false, "omit table headers")
	cmd.Flags().BoolVar(&o.compact, "compact", false, "compact JSON output")
	cmd.Flags().IntVar(&o.maxWidth, "max-width", 0, "truncate messages to this width (0 = no limit)")
}

// formatter returns the selected formatter. "text" names the table
// formatter.
func (o *outputFlags) formatter() (formatter.Formatter, formatter.FormatOptions, error) {
	name := o.format
	if name == "text" {
		name = "table"
	}
	f, ok := formatter.Get(name)
	if !ok {
		return nil, formatter.FormatOptions{}, usageErrorf("unknown format %q (want text, json or yaml)", o.format)
	}
	return f, formatter.FormatOptions{
		NoHeader: o.noHeader,
		Compact:  o.compact,
		MaxWidth: o.maxWidth,
	}, nil
}

// domainFor returns the domain named by flag, or the one the file name
// spells, e.g. gateway.toml or mesh.toml.
func domainFor(flag, path string) (schema.Domain, error) {
	if flag != "" {
		d, err := schema.ParseDomain(flag)
		if err != nil {
			return "", &usageError{err: err}
		}
		return d, nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if d, err := schema.ParseDomain(base); err == nil {
		return d, nil
	}
	return "", usageErrorf("cannot infer the domain of %s; pass --domain", path)
}
