package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibetunes/vibetunes-backend/config"
	"github.com/vibetunes/vibetunes-backend/logging"
	"github.com/vibetunes/vibetunes-backend/mood"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the vibetunes command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "vibetunes",
		Short:         "VibeTunes mood detection backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config.yaml (default: config/$CONFIG_ENV/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override log format (text, json)")

	root.AddCommand(
		newServeCommand(opts),
		newResolveCommand(opts),
		newMapCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) load() (*config.Root, *logrus.Logger, error) {
	c, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		c.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		c.Log.Format = o.logFormat
	}
	return c, logging.Init(c.Log.Level, c.Log.Format), nil
}

func (o *rootOptions) engine() (*mood.Engine, error) {
	c, _, err := o.load()
	if err != nil {
		return nil, err
	}
	return mood.New(c.Engine)
}
