package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditAction 审计日志操作类型
type AuditAction string

const (
	ActionAssistantCommand AuditAction = "assistant_command"
	ActionClearBuffer      AuditAction = "clear_buffer"
	ActionCompleteItem     AuditAction = "complete_action_item"
)

// AuditEntry 审计日志条目
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Action     AuditAction       `json:"action"`
	ResourceID string            `json:"resource_id,omitempty"` // action item id / intent
	Before     interface{}       `json:"before,omitempty"`      // 操作前状态
	After      interface{}       `json:"after,omitempty"`       // 操作后状态
	Fields     map[string]string `json:"fields,omitempty"`      // 额外字段 (state, degraded ...)
}

// AuditLogger 审计日志记录器接口
type AuditLogger interface {
	// LogAction 记录审计日志
	LogAction(action AuditAction, resourceID string, before, after interface{}, fields map[string]string) error
}

// FileAuditLogger 基于 lumberjack 滚动文件的 JSONL 审计日志
type FileAuditLogger struct {
	mu     sync.Mutex
	writer io.WriteCloser
	now    func() time.Time
}

// NewFileAuditLogger 创建文件审计日志记录器
// 文件按大小滚动：100MB / 10 个备份 / 30 天
func NewFileAuditLogger(path string) *FileAuditLogger {
	return &FileAuditLogger{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		},
		now: time.Now,
	}
}

// LogAction 追加一行 JSON 审计记录
func (f *FileAuditLogger) LogAction(action AuditAction, resourceID string, before, after interface{}, fields map[string]string) error {
	entry := AuditEntry{
		Timestamp:  f.now().UTC(),
		Action:     action,
		ResourceID: resourceID,
		Before:     before,
		After:      after,
		Fields:     fields,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close 关闭底层文件
func (f *FileAuditLogger) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writer.Close()
}

// NopAuditLogger 丢弃所有审计记录（未配置审计路径时使用）
type NopAuditLogger struct{}

// LogAction 不做任何事
func (NopAuditLogger) LogAction(AuditAction, string, interface{}, interface{}, map[string]string) error {
	return nil
}
