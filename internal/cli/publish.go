package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"edge_redirects/internal/bootstrap"
	"edge_redirects/internal/store"
	"edge_redirects/internal/zone"
	"edge_redirects/internal/zonefile"
)

func publishCmd(a *app) *cobra.Command {
	var yes, dryRun bool

	cmd := &cobra.Command{
		Use:   "publish <file|dir>...",
		Short: "Publish zone descriptions to the store",
		Long: "Reads <domain>.yaml, .yml or .json descriptions and stores each one under its domain.\n" +
			"Directories are read non-recursively.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			entries, err := zonefile.Load(args...)
			if err != nil {
				return err
			}

			out := c.OutOrStdout()
			for _, e := range entries {
				warnInvalidRules(c.ErrOrStderr(), e.Domain, e.Record)
			}

			if dryRun {
				for _, e := range entries {
					fmt.Fprintf(out, "would publish %s (%d rules) from %s\n", e.Domain, len(e.Description.Redirects), e.Path)
				}
				return nil
			}

			return a.withStore(c.Context(), func(b *bootstrap.Backend) error {
				for _, e := range entries {
					existing, err := b.Store.Get(c.Context(), e.Domain)
					switch {
					case errors.Is(err, store.ErrNotFound):
					case err != nil:
						return err
					case bytes.Equal(existing, e.Record):
						fmt.Fprintf(out, "%s unchanged\n", e.Domain)
						continue
					default:
						ok, err := a.allowReplace(out, yes, fmt.Sprintf("%s is already published, overwrite?", e.Domain))
						if err != nil {
							return err
						}
						if !ok {
							fmt.Fprintf(out, "skipped %s\n", e.Domain)
							continue
						}
					}

					if err := b.Store.Put(c.Context(), e.Domain, e.Record); err != nil {
						return err
					}
					fmt.Fprintf(out, "published %s (%d rules)\n", e.Domain, len(e.Description.Redirects))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "overwrite published zones without asking")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and list what would be published")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <domain>...",
		Short: "Remove published zones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()
			return a.withStore(c.Context(), func(b *bootstrap.Backend) error {
				for _, domain := range args {
					domain = normalizeDomain(domain)
					if _, err := b.Store.Get(c.Context(), domain); err != nil {
						if errors.Is(err, store.ErrNotFound) {
							fmt.Fprintf(out, "%s is not published\n", domain)
							continue
						}
						return err
					}

					ok, err := a.allowReplace(out, yes, fmt.Sprintf("delete %s?", domain))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintf(out, "skipped %s\n", domain)
						continue
					}

					if err := b.Store.Delete(c.Context(), domain); err != nil {
						return err
					}
					fmt.Fprintf(out, "deleted %s\n", domain)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// allowReplace decides whether a published record may be replaced or removed.
// Without --yes it prompts on a terminal and refuses otherwise.
func (a *app) allowReplace(out io.Writer, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	if a.deps.Interactive == nil || !a.deps.Interactive() {
		return false, fmt.Errorf("refusing to change published zones without --yes when stdin is not a terminal")
	}
	return a.confirm(out, question)
}

// warnInvalidRules reports rules that would never match once published
func warnInvalidRules(w io.Writer, domain string, record []byte) int {
	cfg, err := zone.Parse(record)
	if err != nil {
		fmt.Fprintf(w, "warning: %s: %v\n", domain, err)
		return 1
	}

	invalid := 0
	for i := range cfg.Redirects {
		rule := &cfg.Redirects[i]
		if rule.Valid() {
			continue
		}
		invalid++
		fmt.Fprintf(w, "warning: %s: rule %d (%s) will be skipped: %v\n", domain, i+1, rule.From, rule.Err)
	}
	return invalid
}
