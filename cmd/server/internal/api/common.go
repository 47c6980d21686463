package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/meetassist/cmd/server/internal/orchestrator"
	"github.com/houzhh15/meetassist/pkg/logger"
)

// GenerationHeader 客户端携带的会话 generation，用于检测过期写入
const GenerationHeader = "X-Session-Generation"

// ErrorBody 统一错误响应
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorResponse 返回错误响应
func errorResponse(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: code, Message: message})
}

// badRequestResponse 返回 400 响应
func badRequestResponse(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, string(orchestrator.VALIDATION_FAILED), message)
}

// successResponse 返回成功响应
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// statusForError 将聚合器错误映射为 HTTP 状态码
//
//	ValidationError → 400 (NOT_FOUND → 404)
//	StateError      → 409
//	InferenceError  → 502 (TIMEOUT → 504, BUSY/UNAVAILABLE → 503)
func statusForError(err error) (int, string) {
	oe, ok := orchestrator.AsOrchError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL"
	}
	switch oe.Code {
	case orchestrator.NOT_FOUND:
		return http.StatusNotFound, string(oe.Code)
	case orchestrator.INFERENCE_TIMEOUT:
		return http.StatusGatewayTimeout, string(oe.Code)
	case orchestrator.INFERENCE_BUSY, orchestrator.INFERENCE_UNAVAILABLE:
		return http.StatusServiceUnavailable, string(oe.Code)
	}
	switch oe.Kind() {
	case orchestrator.KindValidation:
		return http.StatusBadRequest, string(oe.Code)
	case orchestrator.KindState:
		return http.StatusConflict, string(oe.Code)
	default:
		return http.StatusBadGateway, string(oe.Code)
	}
}

// handleError 写入错误响应并记录日志
func handleError(c *gin.Context, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if oe, ok := orchestrator.AsOrchError(err); ok {
		message = oe.Message
	}
	if status >= 500 {
		rid, _ := c.Get("request_id")
		logger.L().Warn("request failed", "rid", rid, "path", c.FullPath(), "code", code, "error", err)
	}
	errorResponse(c, status, code, message)
}

// requestContext 从 X-Session-Generation 头构造带期望 generation 的 context
func requestContext(c *gin.Context) (context.Context, error) {
	ctx := c.Request.Context()
	raw := c.GetHeader(GenerationHeader)
	if raw == "" {
		return ctx, nil
	}
	gen, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + GenerationHeader + " header")
	}
	return orchestrator.WithGeneration(ctx, gen), nil
}
