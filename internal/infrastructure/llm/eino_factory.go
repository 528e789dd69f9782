package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"serial-novel-engine/internal/config"
)

// defaultProviderTimeout 提供商未配置超时时的单次调用上限
const defaultProviderTimeout = 3 * time.Minute

// chatModelSource 按提供商名称取得 ChatModel
type chatModelSource interface {
	Get(ctx context.Context, provider string) (model.BaseChatModel, error)
}

// chatModelPool 惰性创建并复用 OpenAI 兼容提供商的 Eino ChatModel；
// 具体模型在调用时通过 model.WithModel 覆盖
type chatModelPool struct {
	providers map[string]config.ProviderConfig

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

func newChatModelPool(providers map[string]config.ProviderConfig) *chatModelPool {
	return &chatModelPool{
		providers: providers,
		models:    make(map[string]model.BaseChatModel, len(providers)),
	}
}

// Get 获取提供商的 ChatModel，首次使用时创建
func (p *chatModelPool) Get(ctx context.Context, provider string) (model.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.models[provider]; ok {
		return m, nil
	}
	pc, ok := p.providers[provider]
	if !ok {
		return nil, fmt.Errorf("llm provider %q is not configured", provider)
	}

	m, err := openai.NewChatModel(ctx, chatModelConfig(pc))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", provider, err)
	}
	p.models[provider] = m
	return m, nil
}

func chatModelConfig(pc config.ProviderConfig) *openai.ChatModelConfig {
	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	cfg := &openai.ChatModelConfig{
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   pc.Model,
		Timeout: timeout,
	}
	if pc.MaxTokens > 0 {
		maxTokens := pc.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	return cfg
}
