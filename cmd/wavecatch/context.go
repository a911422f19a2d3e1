package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"wavecatch/internal/config"
	"wavecatch/internal/ipc"
)

// skipConfigAnnotation marks commands that load (or create) configuration
// themselves instead of through the root pre-run hook.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext carries the persistent flags and the lazily loaded config
// shared by every subcommand.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	loadConfig func() (*config.Config, error)
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	c := &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
	c.loadConfig = sync.OnceValues(func() (*config.Config, error) {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			return nil, err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		return cfg, nil
	})
	return c
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func (c *commandContext) configPath() string { return flagValue(c.configFlag) }

func (c *commandContext) logLevel() string { return flagValue(c.logLevelFlag) }

func (c *commandContext) ensureConfig() (*config.Config, error) {
	return c.loadConfig()
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.loadConfig()
	return cfg
}

// withClient dials the daemon socket and closes the connection after fn.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	cfg := c.configValue()
	if cfg == nil {
		return nil, errors.New("connect to daemon: configuration not available")
	}
	socket := cfg.SocketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `wavecatch start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; the daemon may have crashed, run `wavecatch restart`", socket)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
