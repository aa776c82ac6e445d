package models

import "context"

// ChatCompleter 大模型对话补全
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ImageRequest 文生图请求
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	N              int
	Size           string // 如 "1280*960"
}

// ImageGenerator 文生图服务，返回生成图片的远程地址
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) ([]string, error)
}

// ParseOutcome 大模型输出的解析结果类型
type ParseOutcome int

const (
	Parsed   ParseOutcome = iota // 按JSON解析成功
	Fallback                     // 解析失败，使用原文和模板提示词
)

// String 返回解析结果名称
func (o ParseOutcome) String() string {
	if o == Fallback {
		return "fallback"
	}
	return "parsed"
}

// Composition 根据用户原话生成的文学创作和绘画提示词
type Composition struct {
	PoemText    string
	ImagePrompt string
}

// Illustration 配图结果，LocalPath 仅在本地保存成功时设置
type Illustration struct {
	RemoteURL string
	LocalPath string
}

// ImageURL 返回前端可用的图片地址，优先使用本地地址
func (i Illustration) ImageURL() string {
	if i.LocalPath != "" {
		return i.LocalPath
	}
	return i.RemoteURL
}

// PoemResult 语音成诗接口的返回结果
type PoemResult struct {
	Text     string `json:"text"`
	UserText string `json:"userText"`
	ImageURL string `json:"imageUrl"`
}

// PoemGenerator 语音成诗流程
type PoemGenerator interface {
	HandleVoiceRequest(ctx context.Context, audioBase64 string) (*PoemResult, error)
}
