package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zoomctl",
		Short:         "zoomrelay 命令行工具",
		Long:          "通过命令行调用 zoomrelay HTTP API：健康检查、创建会议、生成 Meeting SDK 签名。",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// 添加全局标志
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newMeetCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
