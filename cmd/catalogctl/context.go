package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpr131/whiskey-inventory-app-sub000/config"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	return config.LoadFile(path)
}

// withApp opens the catalog engine for the duration of fn. Logs go to stderr so
// stdout carries only command output.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) (err error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}
