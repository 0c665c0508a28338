package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMapCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "map <label>...",
		Short: "Print the mood category for raw emotion labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			for _, label := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", label, engine.Map(label))
			}
			return nil
		},
	}
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.load()
			if err != nil {
				return err
			}
			out, err := c.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
