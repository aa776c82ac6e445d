package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"voice_story/internal/apperr"
	"voice_story/internal/models"
)

// FallbackImagePromptTemplate 大模型输出无法解析时的绘画提示词模板
const FallbackImagePromptTemplate = "Christmas atmosphere, magical, %s"

const compositionSystemPrompt = "你是一位饱读诗书的文学大师，同时也是一位精通视觉艺术的导演。请以JSON格式输出你的创作。"

const compositionUserPrompt = `你是一位饱读诗书的文学大师，精通古今中外文学典籍。用户刚刚分享了一段心声：
"%s"

请完成两项任务：
1. 以最高文学水准创作一段文字作为回应（诗歌/散文/哲思短句）。
2. 基于你的创作内容，生成一段用于AI绘画的提示词（Prompt）。

【任务一：文学创作原则】
- **情感共鸣**：深入体察用户言语中的情感基调与心境
- **引经据典**：可巧妙引用中西方经典，但需自然融入
- **意境营造**：创造画面感与情感共鸣
- **形式自由**：形式服务于内容
- **长度限制**：60字以内

【任务二：绘画提示词生成规则】
提示词 = 主体（主体描述）+ 场景（场景描述）+ 风格（定义风格）+ 镜头语言 + 氛围词 + 细节修饰
- **主体描述**：清晰描述图像主体
- **场景描述**：环境特征细节
- **定义风格**：如"水彩风格"、"油画风格"、"梦幻插画"等
- **镜头语言**：景别、视角等
- **氛围词**：如"梦幻"、"温暖"、"孤独"等
- **细节修饰**：光源、道具、环境细节等
- **长度限制**：200字左右，确保生图速度

【输出格式】
请仅输出一个标准的 JSON 对象，不要包含任何其他文字或Markdown标记：
{
    "poem": "你的文学创作内容",
    "image_prompt": "你的绘画提示词"
}
`

// BuildCompositionPrompt 返回system和user消息
func BuildCompositionPrompt(transcript string) (system, user string) {
	return compositionSystemPrompt, fmt.Sprintf(compositionUserPrompt, transcript)
}

// ParseResult 大模型输出的解析结果
type ParseResult struct {
	Composition models.Composition
	Outcome     models.ParseOutcome
	Err         error // Fallback 时的解析错误
}

// ParseComposition 解析大模型输出，失败时整段原文作为诗歌
func ParseComposition(raw, transcript string) ParseResult {
	var body struct {
		Poem        string `json:"poem"`
		ImagePrompt string `json:"image_prompt"`
	}

	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &body); err != nil {
		return ParseResult{
			Composition: models.Composition{
				PoemText:    raw,
				ImagePrompt: fmt.Sprintf(FallbackImagePromptTemplate, transcript),
			},
			Outcome: models.Fallback,
			Err:     err,
		}
	}

	return ParseResult{
		Composition: models.Composition{PoemText: body.Poem, ImagePrompt: body.ImagePrompt},
		Outcome:     models.Parsed,
	}
}

// stripCodeFence 去掉 markdown 代码块标记
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Composer 根据识别文本生成诗歌和绘画提示词
type Composer struct {
	llm models.ChatCompleter
}

// NewComposer 创建创作服务
func NewComposer(llm models.ChatCompleter) *Composer {
	return &Composer{llm: llm}
}

// Generate 调用大模型；格式问题不会返回错误，只有调用失败才返回
func (c *Composer) Generate(ctx context.Context, transcript string) (ParseResult, error) {
	system, user := BuildCompositionPrompt(transcript)

	content, err := c.llm.Complete(ctx, system, user)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Wrap(apperr.KindGeneration, err, "LLM failed").WithDetails(err.Error())
		}
		log.Printf("[ERROR] LLM Error: %v", err)
		return ParseResult{}, err
	}
	log.Printf("[DEBUG] LLM Response: %s", content)

	result := ParseComposition(content, transcript)
	if result.Outcome == models.Fallback {
		log.Printf("[ERROR] 大模型输出不是有效JSON，使用原文作为诗歌: %v", result.Err)
	}
	log.Printf("[DEBUG] Poem: %s", result.Composition.PoemText)
	log.Printf("[DEBUG] Image Prompt: %s", result.Composition.ImagePrompt)

	return result, nil
}
