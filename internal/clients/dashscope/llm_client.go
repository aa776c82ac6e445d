package dashscope

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"voice_story/internal/apperr"
)

const (
	DefaultLLMBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultLLMModel   = "qwen-plus"
	defaultLLMTimeout = 60 * time.Second
)

// ChatConfig 通义千问（OpenAI兼容模式）配置
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ChatClient 调用通义千问生成文本
type ChatClient struct {
	client *openai.Client
	model  string
}

// NewChatClient 创建大模型客户端
func NewChatClient(config ChatConfig) *ChatClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultLLMBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultLLMModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultLLMTimeout
	}

	oc := openai.DefaultConfig(config.APIKey)
	oc.BaseURL = config.BaseURL
	oc.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &ChatClient{
		client: openai.NewClientWithConfig(oc),
		model:  config.Model,
	}
}

// Complete 发送system和user消息，返回第一条回复内容
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	log.Printf("[DEBUG] 调用大模型 %s...", c.model)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGeneration, err, "LLM failed").WithDetails(describeLLMError(err))
	}

	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindGeneration, "LLM failed").WithDetails("empty choices in response " + resp.ID)
	}

	return resp.Choices[0].Message.Content, nil
}

func describeLLMError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err.Error()
}
