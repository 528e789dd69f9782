// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	// 通用错误 (1xxx)
	CodeUnknown         ErrorCode = "1000"
	CodeInvalidParam    ErrorCode = "1001"
	CodeTooManyRequests ErrorCode = "1006"
	CodeInternalError   ErrorCode = "1007"

	// 请求配置错误 (11xx)，在任何外部调用之前失败
	CodeOutlineTooShort      ErrorCode = "1101"
	CodeNoProviderConfigured ErrorCode = "1102"

	// 资源错误 (3xxx)
	CodeInstallmentNotFound ErrorCode = "3002"
	CodeJobNotFound         ErrorCode = "3003"

	// 生成错误 (4xxx)
	CodeGenerationFailed  ErrorCode = "4001"
	CodeGenerationTimeout ErrorCode = "4002"
	CodeLLMCallFailed     ErrorCode = "4005"
	CodeEmptyCompletion   ErrorCode = "4006"

	// 外部服务错误 (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodeStorageError  ErrorCode = "5004"
	CodeQueueError    ErrorCode = "5006"
)

type codeInfo struct {
	status    int
	retryable bool
}

// codes 未登记的错误码按 500、不可重试处理
var codes = map[ErrorCode]codeInfo{
	CodeInvalidParam:         {status: http.StatusBadRequest},
	CodeOutlineTooShort:      {status: http.StatusBadRequest},
	CodeInstallmentNotFound:  {status: http.StatusNotFound},
	CodeJobNotFound:          {status: http.StatusNotFound},
	CodeTooManyRequests:      {status: http.StatusTooManyRequests, retryable: true},
	CodeNoProviderConfigured: {status: http.StatusServiceUnavailable},
	CodeGenerationTimeout:    {status: http.StatusGatewayTimeout, retryable: true},
	CodeLLMCallFailed:        {status: http.StatusBadGateway, retryable: true},
	CodeEmptyCompletion:      {status: http.StatusBadGateway, retryable: true},
}

func lookup(code ErrorCode) codeInfo {
	if info, ok := codes[code]; ok {
		return info
	}
	return codeInfo{status: http.StatusInternalServerError}
}

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 返回附带详情的副本，预定义错误可安全调用
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// Retryable 调用方稍后重试可能成功
func (e *AppError) Retryable() bool {
	return lookup(e.Code).retryable
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: lookup(code).status}
}

// Wrap 包装底层错误，err 可为 nil
func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Err = err
	return e
}

// 预定义错误
var (
	ErrInstallmentNotFound = New(CodeInstallmentNotFound, "installment not found")
	ErrJobNotFound         = New(CodeJobNotFound, "job not found")
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 非应用错误包装为 CodeUnknown
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// HasCode 判断错误链中是否存在指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// IsRetryable 错误链上第一个应用错误是否可重试
func IsRetryable(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Retryable()
}
