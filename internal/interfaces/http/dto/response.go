// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serial-novel-engine/pkg/errors"
)

// TraceIDKey trace 中间件写入 gin.Context 的键
const TraceIDKey = "trace_id"

// Response 统一响应结构
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorDetail struct {
	ErrorCode   string   `json:"error_code,omitempty"`
	Details     string   `json:"details,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func Success[T any](c *gin.Context, data T) {
	write(c, http.StatusOK, "success", data)
}

// Accepted 异步任务已入队
func Accepted[T any](c *gin.Context, data T) {
	write(c, http.StatusAccepted, "accepted", data)
}

func write[T any](c *gin.Context, status int, msg string, data T) {
	c.JSON(status, Response[T]{Code: status, Message: msg, Data: data, TraceID: c.GetString(TraceIDKey)})
}

// Fail 写错误响应并中止后续处理
func Fail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString(TraceIDKey),
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message, &ErrorDetail{ErrorCode: string(errors.CodeInvalidParam)})
}

// AppError 按应用错误码映射状态码；可重试错误附带建议
func AppError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	detail := &ErrorDetail{ErrorCode: string(appErr.Code), Details: appErr.Detail}
	if appErr.Retryable() {
		detail.Suggestions = []string{"retry later"}
	}
	Fail(c, status, appErr.Message, detail)
}
