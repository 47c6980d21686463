package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// printOutput 按指定格式输出响应数据
func printOutput(w io.Writer, format string, data []byte) error {
	if format == "json" {
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			// 非 JSON 数据直接输出
			_, err = fmt.Fprintln(w, string(data))
			return err
		}
		_, err := fmt.Fprintln(w, out.String())
		return err
	}
	// text 模式：直接输出
	_, err := fmt.Fprintln(w, string(bytes.TrimSpace(data)))
	return err
}
