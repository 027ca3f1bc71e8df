// Package cli implements the opcall command line: listing and describing
// operations, calling them with images read from disk, browsing the call
// journal and an interactive operation runner.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/opcall/config"
	"github.com/wippyai/opcall/engine"
	"github.com/wippyai/opcall/introspect"
	"github.com/wippyai/opcall/invoke"
	"github.com/wippyai/opcall/journal"
	"github.com/wippyai/opcall/runtime"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	cfg        *config.Config
	log        *zap.Logger
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the opcall CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "opcall",
		Short: "Call image operations by name",
		Long: `opcall calls image processing operations by name, discovering each
operation's arguments at runtime.

Images are read with @path arguments and written with -o.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewInteractiveCommand(opts))

	return cmd
}

// setup loads the config and installs its logger in every package.
func (o *RootOptions) setup() error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	engine.SetLogger(log)
	introspect.SetLogger(log)
	invoke.SetLogger(log)
	runtime.SetLogger(log)
	journal.SetLogger(log)

	o.cfg = cfg
	o.log = log
	return nil
}

// settings returns the loaded configuration, or the defaults when a command
// runs without the root's pre-run hook.
func (o *RootOptions) settings() *config.Config {
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	return o.cfg
}

// session is a runtime with its kernels loaded and, if configured, the
// journal subscribed.
type session struct {
	rt      *runtime.Runtime
	journal *journal.Journal
}

func (o *RootOptions) open(ctx context.Context) (*session, error) {
	cfg := o.settings()
	rt := runtime.New(cfg.EngineConfig())

	if err := rt.LoadKernels(ctx, cfg.RuntimeKernels()...); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	s := &session{rt: rt}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		rt.Subscribe(j)
		s.journal = j
	}
	return s, nil
}

func (s *session) Close(ctx context.Context) error {
	err := s.rt.Close(ctx)
	if s.journal != nil {
		if jerr := s.journal.Close(); err == nil {
			err = jerr
		}
	}
	return err
}
