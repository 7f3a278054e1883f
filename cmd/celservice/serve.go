package main

import (
	"github.com/MaxRadzey/celservice/internal/app"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the expression service over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return app.Run(cfg)
		},
	}
	bindServerFlags(cmd.Flags(), opts)
	bindLimitFlags(cmd.Flags(), opts)
	return cmd
}
