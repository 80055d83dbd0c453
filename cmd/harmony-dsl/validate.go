package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurabx/harmony-dsl/core/catalog"
	"github.com/aurabx/harmony-dsl/core/formatter"
	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
)

type validateOptions struct {
	domain  string
	gateway string
	output  outputFlags
}

func newValidateCmd(c *cli) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate configuration documents",
		Long: `Validate configuration documents against the schema of their domain.

The domain comes from --domain, or from the file name when it is
<domain>.toml. Use - to read a document from stdin.

References to names another domain provides (service types, networks,
middleware types) resolve against --gateway and the static registry of
the config file.

Exit status is 0 when every document is valid, 1 when any is invalid.

Examples:
  harmony-dsl validate gateway.toml
  harmony-dsl validate pipeline/*.toml --domain pipeline --gateway gateway.toml
  cat mesh.toml | harmony-dsl validate - --domain mesh --format json`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, c, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.domain, "domain", "d", "", "domain of the documents: gateway, pipeline, mesh, remote-ingress")
	cmd.Flags().StringVarP(&opts.gateway, "gateway", "g", "", "gateway config whose names resolve references")
	opts.output.register(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, c *cli, opts *validateOptions, args []string) error {
	f, fopts, err := opts.output.formatter()
	if err != nil {
		return err
	}

	// Resolve every domain before reading anything.
	domains := make([]schema.Domain, len(args))
	for i, path := range args {
		if path == "-" && opts.domain == "" {
			return usageErrorf("reading stdin requires --domain")
		}
		if domains[i], err = domainFor(opts.domain, path); err != nil {
			return err
		}
	}

	cfg, err := c.setup()
	if err != nil {
		return err
	}
	cat := c.catalog(cfg)

	resolver, err := buildResolver(cat, cfg.Registry.Resolver(), opts.gateway)
	if err != nil {
		return err
	}

	reports := make([]formatter.FileReport, 0, len(args))
	invalid := 0
	for i, path := range args {
		data, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		rep, err := cat.Validate(domains[i], data, resolver)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !rep.Valid() {
			invalid++
		}
		c.logger.Debug().
			Str("file", path).
			Str("domain", string(domains[i])).
			Int("diagnostics", len(rep.Diagnostics)).
			Msg("document validated")

		name := path
		if path == "-" {
			name = ""
		}
		reports = append(reports, formatter.FileReport{File: name, Report: rep})
	}

	if err := f.FormatReports(cmd.OutOrStdout(), reports, fopts); err != nil {
		return err
	}
	if invalid > 0 {
		return errInvalid
	}
	return nil
}

// buildResolver chains the static registry with the names a gateway
// config provides.
func buildResolver(cat *catalog.Catalog, static *linker.Registry, gatewayPath string) (linker.Resolver, error) {
	if gatewayPath == "" {
		return static, nil
	}

	data, err := os.ReadFile(gatewayPath)
	if err != nil {
		return nil, fmt.Errorf("read gateway config: %w", err)
	}
	provided, err := cat.Collect(schema.DomainGateway, data)
	if err != nil {
		return nil, fmt.Errorf("gateway config %s: %w", gatewayPath, err)
	}
	return linker.Chain(static, provided), nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
