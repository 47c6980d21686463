package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// runGet 执行 GET 并按配置格式输出
func runGet(cmd *cobra.Command, path string) error {
	cfg := LoadConfig(cmd)
	resp, err := NewAPIClient(cfg).Get(path)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), cfg.Output, resp)
}

// runRequest 执行带 JSON body 的请求并按配置格式输出
func runRequest(cmd *cobra.Command, method, path string, body interface{}) error {
	cfg := LoadConfig(cmd)
	resp, err := NewAPIClient(cfg).Request(method, path, body)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), cfg.Output, resp)
}

// withQuery 拼接非空查询参数
func withQuery(path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func newTranscriptCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "transcript",
		Short: "查看转写缓冲",
		RunE: func(cmd *cobra.Command, args []string) error {
			speaker := mustGetString(cmd, "speaker")
			return runGet(cmd, withQuery("/api/v1/session/transcript", map[string]string{"speaker": speaker}))
		},
	}
	c.Flags().String("speaker", "", "仅显示该说话人的片段（可选）")
	return c
}

func newSentimentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment",
		Short: "查看各说话人情感记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, "/api/v1/session/sentiment")
		},
	}
}

func newActionsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "actions",
		Aliases: []string{"action-items"},
		Short:   "查看待办事项",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := mustGetString(cmd, "status")
			switch status {
			case "", "all", "open", "done":
			default:
				return fmt.Errorf("invalid status: %s (valid: open/done/all)", status)
			}
			return runGet(cmd, withQuery("/api/v1/session/action-items", map[string]string{
				"status":  status,
				"speaker": mustGetString(cmd, "speaker"),
			}))
		},
	}
	c.Flags().String("status", "", "过滤状态: open/done/all (默认: all)")
	c.Flags().String("speaker", "", "仅显示该说话人的待办（可选）")
	return c
}

func newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <action-item-id>",
		Short: "将待办事项标记为已完成",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/action-items/" + url.PathEscape(args[0]) + "/complete"
			return runRequest(cmd, http.MethodPost, path, nil)
		},
	}
}

func newClearCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "clear",
		Short: "清空会话（转写、情感与待办）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("clearing the session discards all buffered data; re-run with --yes to confirm")
			}
			return runRequest(cmd, http.MethodPost, "/api/v1/session/clear", nil)
		},
	}
	c.Flags().Bool("yes", false, "确认清空")
	return c
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "查看推理服务健康与降级状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, "/api/v1/services/status")
		},
	}
}

// mustGetString 获取字符串标志
func mustGetString(cmd *cobra.Command, flag string) string {
	v, _ := cmd.Flags().GetString(flag)
	return v
}
