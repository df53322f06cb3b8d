package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/dagclosure/internal/config"
	"github.com/roach88/dagclosure/internal/engine"
	"github.com/roach88/dagclosure/internal/store"
)

// session is an open store and the engine over it.
type session struct {
	engine *engine.Engine
	store  store.Store
	logger *slog.Logger
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}

// loadConfig resolves the configuration: defaults, then --config, then
// explicitly set flags.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Store.Driver = opts.Driver
		if opts.Driver == config.DriverMemory && !flags.Changed("db") {
			cfg.Store.Path = ""
		}
	}
	if flags.Changed("db") {
		cfg.Store.Path = opts.Database
	}
	if flags.Changed("polymorphic") {
		cfg.Polymorphic = opts.Polymorphic
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// openSession opens the configured store and builds an engine. Logs go to
// the command's stderr.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	logger.Debug("opening store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	st, err := cfg.Store.OpenStore(logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	eng := engine.New(st,
		engine.WithLogger(logger),
		engine.WithPolymorphic(cfg.Polymorphic),
	)
	return &session{engine: eng, store: st, logger: logger}, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
