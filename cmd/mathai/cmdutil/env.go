// Package cmdutil wires configuration, credentials and logging into a backend
// client for the mathai subcommands.
package cmdutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/client"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/credentials"
	"github.com/papercomputeco/mathai/pkg/logger"
	"github.com/papercomputeco/mathai/pkg/transport"
)

// Env is everything a subcommand needs to talk to the backend.
type Env struct {
	Config *config.Config
	Viper  *viper.Viper
	Logger *zap.Logger
	Tokens *credentials.Store
	Client *client.Client

	ConfigDir string

	closers []io.Closer
}

// Setup resolves configuration for cmd, binding the registry flags named by
// flagKeys, and builds a client for the configured backend. Callers must
// Close the returned Env.
func Setup(cmd *cobra.Command, flagKeys []string, opts ...transport.Option) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	keys := append(slices.Clone(flagKeys), config.FlagJSONLogs)
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	cfg := config.FromViper(v)

	env := &Env{
		Config:    cfg,
		Viper:     v,
		ConfigDir: configDir,
	}

	env.Logger, err = env.newLogger(cmd)
	if err != nil {
		return nil, err
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	env.Tokens = mgr.Store(cfg.Client.BaseURL)

	env.Client = client.New(client.Config{
		BaseURL: cfg.Client.BaseURL,
		Tokens:  env.Tokens,
		Logger:  env.Logger,
	}, opts...)

	env.Logger.Debug("client ready",
		zap.String("base_url", env.Client.BaseURL()),
		zap.Bool("logged_in", env.Client.LoggedIn()),
	)
	return env, nil
}

// newLogger builds the stderr logger and, with --log-file, tees every entry
// at debug level into that file as JSON.
func (e *Env) newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	debug = debug || e.Config.Log.Debug

	console := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(e.Config.Log.JSON),
		logger.WithColor(!e.Config.Log.JSON && cliui.IsTerminal(os.Stderr)),
	)

	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" {
		return console, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	e.closers = append(e.closers, f)

	file := logger.New(logger.WithDebug(true), logger.WithJSON(true), logger.WithWriter(f))
	return logger.Multi(console, file), nil
}

// AddCloser registers c to be closed with the Env.
func (e *Env) AddCloser(c io.Closer) {
	e.closers = append(e.closers, c)
}

// Close flushes the logger and closes any opened files.
func (e *Env) Close() error {
	var errs []error
	if e.Logger != nil {
		_ = e.Logger.Sync()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequireLogin fails with a hint when no token is stored for the backend.
func (e *Env) RequireLogin() error {
	if e.Client.LoggedIn() {
		return nil
	}
	return fmt.Errorf("not logged in to %s\n\nRun: mathai auth login <username>", e.Client.BaseURL())
}

// OpenTrace opens path for appending raw stream bytes. An empty path returns
// no option.
func OpenTrace(path string) ([]transport.Option, io.Closer, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening trace file: %w", err)
	}
	return []transport.Option{transport.WithTrace(f)}, f, nil
}
