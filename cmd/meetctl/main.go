package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meetctl",
		Short:         "meetctl - 会议助手命令行工具",
		Long:          "通过命令行直接调用 meetassist 服务的 HTTP API：查看转写、情感与待办，提交会议输入和助手命令。",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// 添加全局标志
	addGlobalFlags(rootCmd)

	// 注册所有子命令
	rootCmd.AddCommand(newTranscriptCmd())
	rootCmd.AddCommand(newSentimentCmd())
	rootCmd.AddCommand(newActionsCmd())
	rootCmd.AddCommand(newCompleteCmd())
	rootCmd.AddCommand(newSayCmd())
	rootCmd.AddCommand(newTranscribeCmd())
	rootCmd.AddCommand(newTranslateCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newStatusCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
