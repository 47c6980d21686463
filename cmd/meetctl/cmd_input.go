package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newSayCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "say",
		Short: "提交一段发言文本（情感分析 + 待办检测）",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"speaker": mustGetString(cmd, "speaker"),
				"text":    mustGetString(cmd, "text"),
			}
			addOptionalString(cmd, body, "language")
			if cmd.Flags().Changed("generation") {
				gen, _ := cmd.Flags().GetUint64("generation")
				body["generation"] = gen
			}
			return runRequest(cmd, http.MethodPost, "/api/v1/meeting-input", body)
		},
	}
	c.Flags().String("speaker", "", "说话人（必选）")
	c.Flags().String("text", "", "发言文本（必选）")
	c.Flags().String("language", "", "语言代码（可选）")
	c.Flags().Uint64("generation", 0, "期望的会话 generation（可选，过期则拒绝写入）")
	_ = c.MarkFlagRequired("speaker")
	_ = c.MarkFlagRequired("text")
	return c
}

func newTranscribeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "transcribe",
		Short: "上传音频文件进行转写并追加到转写缓冲",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := mustGetString(cmd, "file")
			audio, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read audio file: %w", err)
			}
			if len(audio) == 0 {
				return fmt.Errorf("audio file %s is empty", path)
			}
			// []byte 以 base64 编码进 JSON
			body := map[string]interface{}{
				"audio":    audio,
				"speaker":  mustGetString(cmd, "speaker"),
				"language": mustGetString(cmd, "language"),
			}
			return runRequest(cmd, http.MethodPost, "/api/v1/transcriptions", body)
		},
	}
	c.Flags().StringP("file", "f", "", "音频文件路径（必选）")
	c.Flags().String("speaker", "", "说话人（可选，默认 unknown）")
	c.Flags().String("language", "", "语言代码（可选）")
	_ = c.MarkFlagRequired("file")
	return c
}

func newTranslateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "translate <text…>",
		Short: "翻译文本（不修改会话）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"text": strings.Join(args, " "),
				"to":   mustGetString(cmd, "to"),
			}
			addOptionalString(cmd, body, "from")
			return runRequest(cmd, http.MethodPost, "/api/v1/translations", body)
		},
	}
	c.Flags().String("from", "", "源语言（可选）")
	c.Flags().String("to", "", "目标语言（必选）")
	_ = c.MarkFlagRequired("to")
	return c
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <command…>",
		Short: "向会议助手发送命令，例如: meetctl ask what is still open",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"command": strings.Join(args, " ")}
			return runRequest(cmd, http.MethodPost, "/api/v1/assistant/commands", body)
		},
	}
}

// addOptionalString 如果命令行标志有值则添加到 body map
func addOptionalString(cmd *cobra.Command, body map[string]interface{}, flag string, jsonKeys ...string) {
	v, _ := cmd.Flags().GetString(flag)
	if v == "" {
		return
	}
	key := flag
	if len(jsonKeys) > 0 {
		key = jsonKeys[0]
	}
	body[key] = v
}
