package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/limiter"
)

// ErrorCode 表示聚合器错误类型代码
type ErrorCode string

const (
	// INFERENCE_FAILED 推理服务返回错误或不可解析的响应
	INFERENCE_FAILED ErrorCode = "INFERENCE_FAILED"

	// INFERENCE_TIMEOUT 推理调用超过 inference.timeout
	INFERENCE_TIMEOUT ErrorCode = "INFERENCE_TIMEOUT"

	// INFERENCE_EMPTY 推理服务返回空结果（例如转写文本为空）
	INFERENCE_EMPTY ErrorCode = "INFERENCE_EMPTY"

	// INFERENCE_BUSY 并发槽位在 acquire_timeout 内未释放
	INFERENCE_BUSY ErrorCode = "INFERENCE_BUSY"

	// INFERENCE_UNAVAILABLE 主推理服务不健康，当前处于降级模式
	INFERENCE_UNAVAILABLE ErrorCode = "INFERENCE_UNAVAILABLE"

	// VALIDATION_FAILED 请求缺少必填字段
	VALIDATION_FAILED ErrorCode = "VALIDATION_FAILED"

	// NOT_FOUND 引用的实体不存在
	NOT_FOUND ErrorCode = "NOT_FOUND"

	// STALE_GENERATION 会话已被清空，操作针对的是旧的 generation
	STALE_GENERATION ErrorCode = "STALE_GENERATION"
)

// Kind 错误分类
type Kind string

const (
	KindInference  Kind = "InferenceError"
	KindValidation Kind = "ValidationError"
	KindState      Kind = "StateError"
)

// Kind 返回错误码所属的分类
func (c ErrorCode) Kind() Kind {
	switch c {
	case VALIDATION_FAILED, NOT_FOUND:
		return KindValidation
	case STALE_GENERATION:
		return KindState
	default:
		return KindInference
	}
}

// OrchError 表示聚合器操作错误
type OrchError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现 error 接口
func (e *OrchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现错误链支持
func (e *OrchError) Unwrap() error {
	return e.Cause
}

// Kind 返回错误分类
func (e *OrchError) Kind() Kind {
	return e.Code.Kind()
}

// NewOrchError 创建新的聚合器错误
func NewOrchError(code ErrorCode, message string, cause error) *OrchError {
	return &OrchError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewValidationError 创建参数校验错误
func NewValidationError(format string, args ...any) *OrchError {
	return NewOrchError(VALIDATION_FAILED, fmt.Sprintf(format, args...), nil)
}

// NewNotFoundError 创建实体不存在错误
func NewNotFoundError(what string, cause error) *OrchError {
	return NewOrchError(NOT_FOUND, fmt.Sprintf("%s not found", what), cause)
}

// NewStaleGenerationError 创建 generation 过期错误
func NewStaleGenerationError(expected, current uint64, cause error) *OrchError {
	msg := fmt.Sprintf("session was cleared (generation %d, now %d)", expected, current)
	return NewOrchError(STALE_GENERATION, msg, cause)
}

// NewInferenceError 根据底层错误推断具体的推理错误码
func NewInferenceError(c inference.Capability, cause error) *OrchError {
	code := INFERENCE_FAILED
	switch {
	case errors.Is(cause, limiter.ErrBusy):
		code = INFERENCE_BUSY
	case errors.Is(cause, inference.ErrUnavailable):
		code = INFERENCE_UNAVAILABLE
	case errors.Is(cause, context.DeadlineExceeded):
		code = INFERENCE_TIMEOUT
	}
	return NewOrchError(code, fmt.Sprintf("%s failed", c), cause)
}

// NewInferenceEmptyError 创建推理结果为空错误
func NewInferenceEmptyError(c inference.Capability) *OrchError {
	return NewOrchError(INFERENCE_EMPTY, fmt.Sprintf("%s returned no result", c), nil)
}

// AsOrchError 提取错误链中的 OrchError
func AsOrchError(err error) (*OrchError, bool) {
	var oe *OrchError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func isKind(err error, k Kind) bool {
	oe, ok := AsOrchError(err)
	return ok && oe.Kind() == k
}

// IsInference 判断是否为推理错误
func IsInference(err error) bool { return isKind(err, KindInference) }

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsState 判断是否为状态错误
func IsState(err error) bool { return isKind(err, KindState) }
