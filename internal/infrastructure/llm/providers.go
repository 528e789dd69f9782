package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	einoobs "serial-novel-engine/internal/observability/eino"
	workflowport "serial-novel-engine/internal/workflow/port"
)

// providerClient 单个提供商的最小调用面
type providerClient interface {
	generate(ctx context.Context, modelName string, req workflowport.CompletionRequest) (*workflowport.Completion, error)
	close() error
}

// einoClient 通过 Eino ChatModel 调用 OpenAI 兼容接口
type einoClient struct {
	name    string
	factory chatModelSource
}

func (c *einoClient) generate(ctx context.Context, modelName string, req workflowport.CompletionRequest) (*workflowport.Completion, error) {
	chatModel, err := c.factory.Get(ctx, c.name)
	if err != nil {
		return nil, err
	}

	opts := []model.Option{
		model.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if strings.TrimSpace(modelName) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(modelName)))
	}

	ctx = einoobs.WithChatModelRun(ctx, req.Workflow, c.name)
	msg, err := chatModel.Generate(ctx, req.Messages, opts...)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	out := &workflowport.Completion{
		Text:     msg.Content,
		Provider: c.name,
		Model:    modelName,
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		out.PromptTokens = msg.ResponseMeta.Usage.PromptTokens
		out.CompletionTokens = msg.ResponseMeta.Usage.CompletionTokens
	}
	return out, nil
}

func (c *einoClient) close() error { return nil }

// geminiClient 通过 Google Generative AI SDK 调用 Gemini
type geminiClient struct {
	name   string
	apiKey string

	// mu 保护 client 与 err，close 可能与首个请求并发
	mu     sync.Mutex
	client *genai.Client
	err    error
	closed bool
}

func (c *geminiClient) lazyClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("gemini client %s is closed", c.name)
	}
	if c.client == nil && c.err == nil {
		// 客户端生命周期独立于单次请求
		c.client, c.err = genai.NewClient(context.WithoutCancel(ctx), option.WithAPIKey(c.apiKey))
		if c.err != nil {
			c.err = fmt.Errorf("failed to create Gemini client: %w", c.err)
		}
	}
	return c.client, c.err
}

func (c *geminiClient) generate(ctx context.Context, modelName string, req workflowport.CompletionRequest) (*workflowport.Completion, error) {
	client, err := c.lazyClient(ctx)
	if err != nil {
		return nil, err
	}

	gm := client.GenerativeModel(modelName)
	gm.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	system, parts := splitMessages(req.Messages)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no user content in request")
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}

	out := &workflowport.Completion{
		Text:     text,
		Provider: c.name,
		Model:    modelName,
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (c *geminiClient) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.client == nil {
		return nil
	}
	client := c.client
	c.client = nil
	return client.Close()
}

// splitMessages 系统消息合并为 SystemInstruction，其余按顺序作为文本 Part
func splitMessages(msgs []*schema.Message) (string, []genai.Part) {
	var (
		system []string
		parts  []genai.Part
	)
	for _, m := range msgs {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == schema.System {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

// extractTextFromResponse 从 Gemini 响应中提取文本
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return strings.Join(parts, ""), nil
}
