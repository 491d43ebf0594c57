package commands

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dyluth/murmur/internal/config"
	"github.com/dyluth/murmur/internal/logging"
	"github.com/dyluth/murmur/internal/node"
	"github.com/dyluth/murmur/internal/printer"
	"go.uber.org/zap"
)

// stdin is the source of prompt commands and chat lines. Replaced in tests.
var stdin io.Reader = os.Stdin

// environment is what every command runs with.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	in     *bufio.Reader // Shared by the prompt and the session loop
}

// loadEnvironment loads the configuration, applies flag overrides and builds the logger.
func loadEnvironment() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Write a fresh default config:\n  murmur init --force"},
		)
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if relayURL != "" {
		cfg.Relay.URL = relayURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid flags", err.Error(), []string{"See murmur --help"})
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, printer.Error("failed to set up logging", err.Error(), nil)
	}

	return &environment{cfg: cfg, logger: logger, in: bufio.NewReader(stdin)}, nil
}

// openNode opens the working directory and relay, reporting failures to the user.
func (e *environment) openNode(ctx context.Context) (*node.Node, error) {
	n, err := node.Open(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"failed to start node",
			err.Error(),
			map[string]string{
				"Data dir": e.cfg.DataDir,
				"Relay":    e.cfg.Relay.URL,
			},
			[]string{
				"Check that the relay is running:\n  redis-cli -u " + e.cfg.Relay.URL + " ping",
				"Point murmur at another relay:\n  murmur --relay redis://host:6379/0",
			},
		)
	}
	return n, nil
}
