package main

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "检查 relay 存活状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			client := NewAPIClient(cfg)
			resp, err := client.Get(cmd.Context(), "/")
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), cfg.Output, resp)
		},
	}
}
