package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"voice_story/internal/apperr"
	"voice_story/internal/audio"
	"voice_story/internal/metrics"
	"voice_story/internal/models"
)

// PipelineConfig 语音成诗流程配置
type PipelineConfig struct {
	MinAudioBytes int    // 小于该值只记录告警
	TempDir       string // 临时目录的父目录，空为系统默认
}

// Pipeline 语音成诗流程：转换、识别、创作、配图
type Pipeline struct {
	config      PipelineConfig
	normalizer  *audio.Normalizer
	transcriber *Transcriber
	composer    *Composer
	illustrator *Illustrator
	metrics     *metrics.Metrics
}

// NewPipeline 创建流程编排服务，m 可以为nil
func NewPipeline(config PipelineConfig, normalizer *audio.Normalizer, transcriber *Transcriber,
	composer *Composer, illustrator *Illustrator, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		config:      config,
		normalizer:  normalizer,
		transcriber: transcriber,
		composer:    composer,
		illustrator: illustrator,
		metrics:     m,
	}
}

// HandleVoiceRequest 处理一次语音请求。配图失败不影响结果，其余阶段失败返回 *apperr.Error
func (p *Pipeline) HandleVoiceRequest(ctx context.Context, audioBase64 string) (result *models.PoemResult, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Server Error: %v\n%s", r, debug.Stack())
			result = nil
			err = apperr.Unhandled(fmt.Errorf("%v", r))
		}

		outcome := "ok"
		if err != nil {
			outcome = apperr.KindOf(err).String()
		}
		p.metrics.RecordRequest(outcome)
		p.metrics.ObserveStage(metrics.StageWholeRequest, start)
	}()

	result, err = p.run(ctx, audioBase64)
	if err != nil {
		appErr := apperr.Unhandled(err)
		if appErr.Kind == apperr.KindUnhandled {
			log.Printf("[ERROR] Server Error: %+v", appErr)
		} else {
			log.Printf("[ERROR] %s: %v", appErr.Kind, appErr)
		}
		return nil, appErr
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, audioBase64 string) (*models.PoemResult, error) {
	log.Printf("[DEBUG] Received request with audio data: %d bytes (base64)", len(audioBase64))
	if audioBase64 == "" {
		return nil, apperr.New(apperr.KindClientInput, "No audio data provided")
	}

	stageStart := time.Now()
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(audioBase64))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindClientInput, err, "Invalid audio data").WithDetails(err.Error())
	}
	p.metrics.ObserveStage(metrics.StageDecode, stageStart)
	log.Printf("[DEBUG] Decoded audio size: %d bytes", len(data))

	if len(data) == 0 {
		return nil, apperr.New(apperr.KindClientInput, "No audio data provided")
	}
	if len(data) < p.config.MinAudioBytes {
		log.Printf("[WARN] Audio data is very small, might be empty!")
	}

	dir, err := os.MkdirTemp(p.config.TempDir, "voice-story-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[WARN] 清理临时目录失败: %v", err)
		}
	}()

	// 1. 音频转换
	stageStart = time.Now()
	pcm, err := p.normalizer.Normalize(ctx, dir, data)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageNormalize, stageStart)
	p.metrics.RecordAudio(len(data), string(pcm.Source), pcm.WasConverted)

	// 2. 语音识别
	stageStart = time.Now()
	userText, err := p.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageTranscribe, stageStart)
	if userText == NoSpeechText {
		p.metrics.RecordEmptyTranscript()
	}
	log.Printf("[DEBUG] ASR Text Result: %s", userText)

	// 3. 文学创作与绘画提示词
	stageStart = time.Now()
	parsed, err := p.composer.Generate(ctx, userText)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageCompose, stageStart)
	p.metrics.RecordCompositionParse(parsed.Outcome.String())

	// 4. 配图
	stageStart = time.Now()
	illustration := p.illustrator.Synthesize(ctx, parsed.Composition.ImagePrompt)
	p.metrics.ObserveStage(metrics.StageIllustrate, stageStart)
	p.metrics.RecordIllustration(illustrationResult(illustration))

	return &models.PoemResult{
		Text:     parsed.Composition.PoemText,
		UserText: userText,
		ImageURL: illustration.ImageURL(),
	}, nil
}

func illustrationResult(ill models.Illustration) string {
	switch {
	case ill.LocalPath != "":
		return "local"
	case ill.RemoteURL != "":
		return "remote"
	default:
		return "none"
	}
}
