package node

import (
	"context"
	stderrors "errors"

	"serial-novel-engine/pkg/errors"
)

// IsAbortError 请求级超时或取消：必须中止整个请求，不能降级
func IsAbortError(ctx context.Context, err error) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}
	return errors.HasCode(err, errors.CodeGenerationTimeout)
}

// IsConfigError 配置类错误（无可用提供商等），不可通过重试恢复
func IsConfigError(err error) bool {
	return errors.HasCode(err, errors.CodeNoProviderConfigured) ||
		errors.HasCode(err, errors.CodeInvalidParam)
}
