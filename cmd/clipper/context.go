package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipper/internal/api"
	"clipper/internal/config"
	"clipper/internal/logging"
)

type commandContext struct {
	configFlag *string
	serverFlag *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, serverFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor returns the shared CLI logger. Logs go to stderr and the log file so
// stdout carries only command output.
func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) serverURL(cfg *config.Config) string {
	if c.serverFlag != nil {
		if value := strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/"); value != "" {
			return value
		}
	}
	return cfg.Analytics.Endpoint
}

func (c *commandContext) apiToken(cfg *config.Config) string {
	if c.tokenFlag != nil {
		if value := strings.TrimSpace(*c.tokenFlag); value != "" {
			return value
		}
	}
	return cfg.Server.APIToken
}

// newClient builds a clipperd client from the loaded configuration and flags.
func (c *commandContext) newClient(cfg *config.Config) *api.Client {
	retry := api.DefaultRetryConfig()
	retry.MaxRetries = cfg.Analytics.MaxRetries
	return api.NewClient(c.serverURL(cfg), api.ClientOptions{
		Retry:  retry,
		Logger: c.loggerFor(cfg),
		Token:  c.apiToken(cfg),
	})
}

func (c *commandContext) configAndClient() (*config.Config, *api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration unavailable")
	}
	return cfg, c.newClient(cfg), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
