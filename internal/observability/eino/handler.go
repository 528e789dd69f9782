package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-engine/pkg/logger"
)

// startTimeKey 在 Context 中记录调用开始时间
type startTimeKey struct{}

// newChatModelCallbackHandler ChatModel 回调：把模型原生返回的用量
// 与配置写到当前 span，并输出 debug 日志
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())
			attrs := []attribute.KeyValue{attribute.String("eino.model", modelNameFromInput(input))}
			if input != nil && input.Config != nil {
				attrs = append(attrs,
					attribute.Int("eino.max_tokens", input.Config.MaxTokens),
					attribute.Float64("eino.temperature", float64(input.Config.Temperature)),
				)
			}
			trace.SpanFromContext(ctx).SetAttributes(attrs...)
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			args := []any{
				"workflow", runName(info),
				"model", modelNameFromOutput(output),
				"duration_ms", elapsed(ctx).Milliseconds(),
			}
			if output != nil && output.TokenUsage != nil {
				args = append(args,
					"prompt_tokens", output.TokenUsage.PromptTokens,
					"completion_tokens", output.TokenUsage.CompletionTokens,
				)
				trace.SpanFromContext(ctx).SetAttributes(
					attribute.Int("eino.prompt_tokens", output.TokenUsage.PromptTokens),
					attribute.Int("eino.completion_tokens", output.TokenUsage.CompletionTokens),
					attribute.Int("eino.total_tokens", output.TokenUsage.TotalTokens),
				)
			}
			logger.Debug(ctx, "eino chat model completed", args...)
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logger.Debug(ctx, "eino chat model failed",
				"workflow", runName(info),
				"duration_ms", elapsed(ctx).Milliseconds(),
				"error", err.Error(),
			)
			return ctx
		},
	}
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start)
}

func runName(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
