package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aurabx/harmony-dsl/core/formatter"
	"github.com/aurabx/harmony-dsl/core/schema"
)

func newSchemaCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and check domain schemas",
		Long: `Inspect the bundled domain schemas and check schema files.

Examples:
  harmony-dsl schema list
  harmony-dsl schema show pipeline
  harmony-dsl schema check schemas/gateway.toml
  harmony-dsl schema diff old/gateway.toml new/gateway.toml`,
	}

	cmd.AddCommand(
		newSchemaListCmd(c),
		newSchemaShowCmd(c),
		newSchemaCheckCmd(c),
		newSchemaDiffCmd(c),
	)
	return cmd
}

func newSchemaListCmd(c *cli) *cobra.Command {
	var output outputFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the domain schemas with their versions",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, fopts, err := output.formatter()
			if err != nil {
				return err
			}
			cfg, err := c.setup()
			if err != nil {
				return err
			}
			cat := c.catalog(cfg)

			var summaries []formatter.SchemaSummary
			for _, d := range cat.Domains() {
				doc, err := cat.Schema(d)
				if err != nil {
					return err
				}
				summaries = append(summaries, formatter.Summarize(doc))
			}
			return f.FormatSchemas(cmd.OutOrStdout(), summaries, fopts)
		},
	}
	output.register(cmd)
	return cmd
}

func newSchemaShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <domain>",
		Short: "Print the schema text of a domain",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := schema.ParseDomain(args[0])
			if err != nil {
				return &usageError{err: err}
			}
			cfg, err := c.setup()
			if err != nil {
				return err
			}

			text, err := c.catalog(cfg).Text(domain)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(text)
			return err
		},
	}
}

func newSchemaCheckCmd(c *cli) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Check that schema files load",
		Long: `Load schema files and report meta-schema violations.

Without --domain each file is checked against the domain it declares.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := optionalDomain(domain)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				doc, err := schema.LoadFile(path, d)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok (%s schema %s, fingerprint %s)\n",
					path, displayDomain(doc.Domain), doc.Version, doc.Fingerprint)
			}
			if failed > 0 {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain the schemas must declare")
	return cmd
}

func newSchemaDiffCmd(c *cli) *cobra.Command {
	var (
		domain string
		output outputFlags
	)

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Report breaking changes between two schema releases",
		Long: `Compare two releases of a domain schema.

Within a major version a new release may only add optional fields and
tables. Exit status is 1 when the new release breaks the old one.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, fopts, err := output.formatter()
			if err != nil {
				return err
			}
			d, err := optionalDomain(domain)
			if err != nil {
				return err
			}

			before, err := schema.LoadFile(args[0], d)
			if err != nil {
				return err
			}
			after, err := schema.LoadFile(args[1], d)
			if err != nil {
				return err
			}
			if before.Domain != after.Domain {
				return fmt.Errorf("%s is a %s schema but %s is a %s schema",
					filepath.Base(args[0]), displayDomain(before.Domain),
					filepath.Base(args[1]), displayDomain(after.Domain))
			}

			changes := schema.CheckEvolution(before, after)
			if err := f.FormatChanges(cmd.OutOrStdout(), changes, fopts); err != nil {
				return err
			}
			if len(changes) > 0 {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain the schemas must declare")
	output.register(cmd)
	return cmd
}

func optionalDomain(flag string) (schema.Domain, error) {
	if flag == "" {
		return "", nil
	}
	d, err := schema.ParseDomain(flag)
	if err != nil {
		return "", &usageError{err: err}
	}
	return d, nil
}

func displayDomain(d schema.Domain) string {
	if d == "" {
		return "ad-hoc"
	}
	return string(d)
}
