package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"time"

	"voice_story/internal/models"
)

// NegativePrompt 文生图固定的反向提示词
const NegativePrompt = "低分辨率、错误、最差质量、低质量、残缺、多余的手指、比例不良"

// IllustratorConfig 配图服务配置
type IllustratorConfig struct {
	ImagesDir       string        // 本地保存目录
	ImagesURL       string        // 前端访问的相对路径前缀
	Size            string        // 图片尺寸
	DownloadTimeout time.Duration // 下载超时
	HTTPClient      *http.Client
	Now             func() time.Time
}

// Illustrator 生成配图并保存到本地，任何失败都只记录日志
type Illustrator struct {
	generator models.ImageGenerator
	config    IllustratorConfig
	client    *http.Client
}

// NewIllustrator 创建配图服务
func NewIllustrator(generator models.ImageGenerator, config IllustratorConfig) *Illustrator {
	if config.ImagesURL == "" {
		config.ImagesURL = "story_images"
	}
	if config.Size == "" {
		config.Size = "1280*960"
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = 30 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.DownloadTimeout}
	}
	return &Illustrator{generator: generator, config: config, client: client}
}

// Synthesize 生成配图。失败时返回空结果；下载失败时只保留远程地址
func (i *Illustrator) Synthesize(ctx context.Context, prompt string) (result models.Illustration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Image Gen Exception: %v\n%s", r, debug.Stack())
			result = models.Illustration{}
		}
	}()

	if prompt == "" {
		log.Printf("[WARN] 绘画提示词为空，跳过配图")
		return models.Illustration{}
	}

	log.Printf("[DEBUG] 调用文生图服务...")
	urls, err := i.generator.Generate(ctx, models.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: NegativePrompt,
		N:              1,
		Size:           i.config.Size,
	})
	if err != nil {
		log.Printf("[ERROR] Image Gen Failed: %v", err)
		return models.Illustration{}
	}
	if len(urls) == 0 || urls[0] == "" {
		log.Printf("[ERROR] Image Gen Failed: 未返回图片地址")
		return models.Illustration{}
	}

	result.RemoteURL = urls[0]
	log.Printf("[DEBUG] Image generated: %s", result.RemoteURL)

	filename := fmt.Sprintf("story_%s.png", i.config.Now().Format("20060102_150405"))
	if err := i.download(ctx, result.RemoteURL, filename); err != nil {
		log.Printf("[ERROR] 下载图片失败，使用远程地址: %v", err)
		return result
	}

	result.LocalPath = path.Join(i.config.ImagesURL, filename)
	log.Printf("[DEBUG] Image saved locally: %s", result.LocalPath)
	return result
}

// download 先写临时文件再重命名，失败时不留下半截文件
func (i *Illustrator) download(ctx context.Context, url, filename string) error {
	if i.config.ImagesDir == "" {
		return fmt.Errorf("未配置图片保存目录")
	}

	log.Printf("[DEBUG] Downloading image to %s", filepath.Join(i.config.ImagesDir, filename))

	ctx, cancel := context.WithTimeout(ctx, i.config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("创建下载请求失败: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("下载请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载返回错误状态码: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(i.config.ImagesDir, 0755); err != nil {
		return fmt.Errorf("创建图片目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(i.config.ImagesDir, ".download-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("写入图片失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入图片失败: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(i.config.ImagesDir, filename)); err != nil {
		return fmt.Errorf("保存图片失败: %w", err)
	}
	return nil
}
