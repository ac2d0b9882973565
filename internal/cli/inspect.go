package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"edge_redirects/internal/bootstrap"
	"edge_redirects/internal/matcher"
	"edge_redirects/internal/report"
	"edge_redirects/internal/resolver"
	"edge_redirects/internal/store"
	"edge_redirects/internal/zone"
	"edge_redirects/internal/zonefile"
)

func showCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <domain>",
		Short: "Print a published zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			domain := normalizeDomain(args[0])
			out := c.OutOrStdout()

			return a.withStore(c.Context(), func(b *bootstrap.Backend) error {
				record, err := b.Store.Get(c.Context(), domain)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%s is not published", domain)
				}
				if err != nil {
					return err
				}

				if raw {
					fmt.Fprintf(out, "%s\n", record)
					return nil
				}

				desc, err := zonefile.FromRecord(record)
				if err != nil {
					return err
				}
				warnInvalidRules(c.ErrOrStderr(), domain, record)
				return desc.WriteYAML(out)
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored JSON record")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern]",
		Short: "List published domains",
		Long:  "Lists published domains, optionally filtered by a wildcard pattern such as '*.co.uk'.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			out := c.OutOrStdout()

			return a.withStore(c.Context(), func(b *bootstrap.Backend) error {
				keys, err := b.Store.Keys(c.Context(), pattern)
				if err != nil {
					return err
				}
				if len(keys) == 0 {
					fmt.Fprintln(out, "(no zones published)")
					return nil
				}

				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintln(out, key)
				}
				return nil
			})
		},
	}
}

func resolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Show how the engine would answer a URL",
		Long:  "Resolves the URL's zone and rule against the published zones without contacting the origin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			target := args[0]
			if !strings.Contains(target, "://") {
				target = "http://" + target
			}
			u, err := url.Parse(target)
			if err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}
			out := c.OutOrStdout()

			return a.withStore(c.Context(), func(b *bootstrap.Backend) error {
				r := resolver.New(resolver.Config{Store: b.Store, Logger: a.logger})
				cfg := r.Resolve(c.Context(), u.Host)

				name := cfg.Name
				if name == "" {
					name = "(none)"
				}
				fmt.Fprintf(out, "zone:     %s\n", name)

				path := u.EscapedPath()
				if path == "" {
					path = "/"
				}

				match := matcher.New(a.logger, nil).Match(cfg, path, u.RawQuery)
				switch {
				case match != nil:
					fmt.Fprintf(out, "rule:     %s\n", match.Rule.From)
					fmt.Fprintf(out, "decision: %d %s\n", match.Rule.Status, match.Target())
				case cfg.Fallthrough:
					fmt.Fprintln(out, "decision: pass through to origin")
				default:
					fmt.Fprintln(out, "decision: 404 Not Found")
				}
				return nil
			})
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [domain]...",
		Short: "Export published zones to an XLSX workbook",
		Long:  "Writes one sheet per zone listing its rules. Exports every published zone when no domain is given.",
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()

			return a.withStore(c.Context(), func(b *bootstrap.Backend) error {
				domains := make([]string, 0, len(args))
				for _, d := range args {
					domains = append(domains, normalizeDomain(d))
				}
				if len(domains) == 0 {
					keys, err := b.Store.Keys(c.Context(), "*")
					if err != nil {
						return err
					}
					sort.Strings(keys)
					domains = keys
				}

				zones := make([]report.Zone, 0, len(domains))
				for _, domain := range domains {
					record, err := b.Store.Get(c.Context(), domain)
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("%s is not published", domain)
					}
					if err != nil {
						return err
					}

					cfg, err := zone.Parse(record)
					if err != nil {
						return fmt.Errorf("%s: %w", domain, err)
					}
					zones = append(zones, report.Zone{Domain: domain, Config: cfg})
				}

				f, err := os.Create(output)
				if err != nil {
					return err
				}
				if err := report.Export(f, zones); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}

				fmt.Fprintf(out, "exported %d zones to %s\n", len(zones), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "zones.xlsx", "workbook to write")
	return cmd
}

func normalizeDomain(domain string) string {
	return resolver.Normalize(domain)
}
