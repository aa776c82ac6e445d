package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"voice_story/internal/models"
)

const (
	DefaultImageBaseURL = "https://dashscope.aliyuncs.com/api/v1"
	DefaultImageModel   = "wan2.2-t2i-flash"

	defaultPollInterval = time.Second
	defaultImageTimeout = 120 * time.Second
	maxErrorBodyBytes   = 4096
)

// 异步任务状态
const (
	TaskPending   = "PENDING"
	TaskRunning   = "RUNNING"
	TaskSucceeded = "SUCCEEDED"
	TaskFailed    = "FAILED"
	TaskCanceled  = "CANCELED"
	TaskUnknown   = "UNKNOWN"
)

// ImageConfig 通义万相文生图配置
type ImageConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval time.Duration
	Timeout      time.Duration // 提交到任务结束的总时长
	HTTPClient   *http.Client
}

// ImageClient 提交文生图异步任务并轮询结果
type ImageClient struct {
	config ImageConfig
	client *http.Client
}

// NewImageClient 创建文生图客户端
func NewImageClient(config ImageConfig) *ImageClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultImageBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultImageModel
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultImageTimeout
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ImageClient{config: config, client: client}
}

type synthesisRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt         string `json:"prompt"`
		NegativePrompt string `json:"negative_prompt,omitempty"`
	} `json:"input"`
	Parameters struct {
		N    int    `json:"n"`
		Size string `json:"size,omitempty"`
	} `json:"parameters"`
}

type taskResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Output    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Code       string `json:"code"`
		Message    string `json:"message"`
		Results    []struct {
			URL     string `json:"url"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"results"`
	} `json:"output"`
}

// Generate 生成图片，返回远程图片URL列表
func (c *ImageClient) Generate(ctx context.Context, req models.ImageRequest) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	taskID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] 文生图任务已提交: %s", taskID)

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		task, err := c.fetch(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch task.Output.TaskStatus {
		case TaskSucceeded:
			var urls []string
			for _, r := range task.Output.Results {
				if r.URL != "" {
					urls = append(urls, r.URL)
				}
			}
			if len(urls) == 0 {
				return nil, fmt.Errorf("任务 %s 成功但没有返回图片", taskID)
			}
			return urls, nil
		case TaskFailed, TaskCanceled, TaskUnknown:
			return nil, fmt.Errorf("文生图任务 %s 状态 %s: %s %s",
				taskID, task.Output.TaskStatus, task.Output.Code, task.Output.Message)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("等待文生图任务 %s 超时: %w", taskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *ImageClient) submit(ctx context.Context, req models.ImageRequest) (string, error) {
	var body synthesisRequest
	body.Model = c.config.Model
	body.Input.Prompt = req.Prompt
	body.Input.NegativePrompt = req.NegativePrompt
	body.Parameters.N = req.N
	if body.Parameters.N <= 0 {
		body.Parameters.N = 1
	}
	body.Parameters.Size = req.Size

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/services/aigc/text2image/image-synthesis", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-DashScope-Async", "enable")

	var task taskResponse
	if err := c.do(httpReq, &task); err != nil {
		return "", err
	}
	if task.Output.TaskID == "" {
		return "", fmt.Errorf("响应缺少task_id: %s %s", task.Code, task.Message)
	}
	return task.Output.TaskID, nil
}

func (c *ImageClient) fetch(ctx context.Context, taskID string) (*taskResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	var task taskResponse
	if err := c.do(httpReq, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *ImageClient) do(req *http.Request, out *taskResponse) error {
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("服务器返回错误状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
