// Package eino 注册 Eino 全局回调（ChatModel 用量与耗时）
package eino

import (
	"context"
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var initOnce sync.Once

// Init 注册 Eino 全局 callbacks（进程级一次）
func Init() {
	initOnce.Do(func() {
		handler := cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler()
		einocallbacks.AppendGlobalHandlers(handler)
	})
}

// WithChatModelRun 为直接调用（不经过 Graph 编排）的 ChatModel 初始化回调上下文
func WithChatModelRun(ctx context.Context, workflow, provider string) context.Context {
	return einocallbacks.InitCallbacks(ctx, &einocallbacks.RunInfo{
		Name:      workflow,
		Type:      provider,
		Component: components.ComponentOfChatModel,
	})
}
