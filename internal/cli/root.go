// Package cli implements zonectl, the operator tool that publishes and
// inspects zone descriptions.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"edge_redirects/internal/bootstrap"
	"edge_redirects/internal/config"
)

// Deps are the environment the commands run against
type Deps struct {
	// OpenStore connects to the zone store
	OpenStore func(ctx context.Context, logger *slog.Logger) (*bootstrap.Backend, error)

	// In is read for confirmations
	In io.Reader

	// Interactive reports whether confirmations can be asked
	Interactive func() bool
}

// DefaultDeps opens the store from the environment and prompts on a terminal stdin
func DefaultDeps() Deps {
	return Deps{
		OpenStore: func(ctx context.Context, logger *slog.Logger) (*bootstrap.Backend, error) {
			cfg, err := config.LoadStoreConfig(logger)
			if err != nil {
				return nil, err
			}
			return bootstrap.OpenStore(ctx, cfg, logger)
		},
		In: os.Stdin,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Execute runs zonectl with the process arguments
func Execute() {
	cmd := NewRootCmd(DefaultDeps())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree
func NewRootCmd(deps Deps) *cobra.Command {
	var debug bool
	app := &app{deps: deps}

	cmd := &cobra.Command{
		Use:          "zonectl",
		Short:        "Publish and inspect redirect zone descriptions",
		SilenceUsage: true,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			app.logger = slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging to stderr")

	cmd.AddCommand(
		publishCmd(app),
		deleteCmd(app),
		showCmd(app),
		listCmd(app),
		resolveCmd(app),
		exportCmd(app),
	)
	return cmd
}

type app struct {
	deps   Deps
	logger *slog.Logger
	in     *bufio.Reader
}

// withStore opens the store for the duration of fn
func (a *app) withStore(ctx context.Context, fn func(b *bootstrap.Backend) error) error {
	logger := a.logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := a.deps.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer backend.Close(context.Background())

	return fn(backend)
}

// confirm asks a yes/no question. Without a terminal it refuses.
func (a *app) confirm(out io.Writer, question string) (bool, error) {
	if a.deps.Interactive == nil || !a.deps.Interactive() {
		return false, nil
	}

	if a.in == nil {
		a.in = bufio.NewReader(a.deps.In)
	}

	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
