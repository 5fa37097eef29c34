package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/config"
	"github.com/roach88/vpcr/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "text" | "json" | "yaml"
	Config   string // path to a YAML config file
	Database string // overrides database.path

	cfg    config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the vpcr CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vpcr",
		Short: "vpcr - VPCR record tracker",
		Long: "Track VPCR change requests: import spreadsheet exports, edit records, " +
			"and review the change history and checklists kept in a local SQLite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default ./vpcr.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database file (overrides database.path)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewItemCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewChecklistCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// setup checks global flags, loads configuration, and installs the logger.
func (o *RootOptions) setup(stderr io.Writer) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
	}
	o.cfg = cfg

	level := cfg.Log.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(stderr, handlerOpts)
	}
	o.logger = slog.New(handler)
	return nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openEngine opens the configured database. The caller must Close it.
func (o *RootOptions) openEngine(out *OutputFormatter) (*engine.Engine, error) {
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	out.VerboseLog("Opening database %s", o.cfg.Database.Path)
	eng, err := engine.Open(o.cfg, log)
	if err != nil {
		_ = out.Error(ErrCodeConfig, fmt.Sprintf("failed to open database: %v", err), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return eng, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
