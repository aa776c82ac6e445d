// Package config 提供配置加载和管理功能
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 环境变量
const (
	EnvAPIKey = "DASHSCOPE_API_KEY"
	EnvPort   = "VOICE_STORY_PORT"
)

// Config 应用程序配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	DashScope DashScopeConfig `yaml:"dashscope"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host            string        `yaml:"host"`             // 监听地址
	Port            int           `yaml:"port"`             // 监听端口
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // 优雅退出等待时间
	GinMode         string        `yaml:"gin_mode"`         // debug/release/test
}

// PathsConfig 静态资源和数据文件路径
type PathsConfig struct {
	StaticDir   string `yaml:"static_dir"`   // 前端页面目录
	IndexFile   string `yaml:"index_file"`   // 首页文件名
	ModelsDir   string `yaml:"models_dir"`   // 模型资源目录
	ImagesDir   string `yaml:"images_dir"`   // 故事配图保存目录
	ImagesURL   string `yaml:"images_url"`   // 配图访问路径前缀
	StoriesFile string `yaml:"stories_file"` // 故事列表文件
}

// FFmpegConfig 音频转换配置
type FFmpegConfig struct {
	Path    string        `yaml:"path"`    // ffmpeg可执行文件路径
	Timeout time.Duration `yaml:"timeout"` // 单次转换超时
}

// DashScopeConfig 阿里云百炼（DashScope）配置
type DashScopeConfig struct {
	APIKey            string        `yaml:"api_key"`             // API Key，通常由环境变量提供
	ASRURL            string        `yaml:"asr_url"`             // 实时识别WebSocket地址
	ASRModel          string        `yaml:"asr_model"`           // 识别模型
	LLMBaseURL        string        `yaml:"llm_base_url"`        // OpenAI兼容模式地址
	LLMModel          string        `yaml:"llm_model"`           // 大模型名称
	LLMTimeout        time.Duration `yaml:"llm_timeout"`         // 大模型请求超时
	ImageBaseURL      string        `yaml:"image_base_url"`      // 文生图接口地址
	ImageModel        string        `yaml:"image_model"`         // 文生图模型
	ImageSize         string        `yaml:"image_size"`          // 图片尺寸
	ImageTimeout      time.Duration `yaml:"image_timeout"`       // 等待生图任务的最长时间
	ImagePollInterval time.Duration `yaml:"image_poll_interval"` // 查询任务状态间隔
}

// PipelineConfig 语音成诗流程参数
type PipelineConfig struct {
	RecognitionTimeout time.Duration `yaml:"recognition_timeout"` // 等待识别完成的超时
	MinAudioBytes      int           `yaml:"min_audio_bytes"`     // 小于该值的音频记录告警
	DownloadTimeout    time.Duration `yaml:"download_timeout"`    // 下载配图超时
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load 从文件加载配置，文件不存在时使用默认配置
func Load(filename string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseConfig, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("[INFO] 配置文件 %s 不存在，使用默认配置", filename)
	default:
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}

	applyDefaults(&config)
	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	if config.DashScope.APIKey == "" {
		log.Printf("[WARN] 未设置 %s 环境变量，调用AI服务的请求将失败", EnvAPIKey)
	}

	return &config, nil
}

// LoadEnvFiles 加载 .env 文件，不存在的文件会被忽略，已有的环境变量不会被覆盖
func LoadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("[WARN] 加载环境变量文件 %s 失败: %v", p, err)
			continue
		}
		log.Printf("[INFO] 已加载环境变量文件: %s", p)
	}
}

// applyDefaults 设置默认值
func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.Server.GinMode == "" {
		config.Server.GinMode = "release"
	}

	if config.Paths.StaticDir == "" {
		config.Paths.StaticDir = "../frontend/particle"
	}
	if config.Paths.IndexFile == "" {
		config.Paths.IndexFile = "skeleton.html"
	}
	if config.Paths.ModelsDir == "" {
		config.Paths.ModelsDir = "../models"
	}
	if config.Paths.ImagesURL == "" {
		config.Paths.ImagesURL = "story_images"
	}
	if config.Paths.ImagesDir == "" {
		config.Paths.ImagesDir = filepath.Join(config.Paths.StaticDir, config.Paths.ImagesURL)
	}
	if config.Paths.StoriesFile == "" {
		config.Paths.StoriesFile = "stories.json"
	}

	if config.FFmpeg.Path == "" {
		config.FFmpeg.Path = "ffmpeg"
	}
	if config.FFmpeg.Timeout == 0 {
		config.FFmpeg.Timeout = 30 * time.Second
	}

	ds := &config.DashScope
	if ds.ASRURL == "" {
		ds.ASRURL = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	}
	if ds.ASRModel == "" {
		ds.ASRModel = "gummy-chat-v1"
	}
	if ds.LLMBaseURL == "" {
		ds.LLMBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if ds.LLMModel == "" {
		ds.LLMModel = "qwen-plus"
	}
	if ds.LLMTimeout == 0 {
		ds.LLMTimeout = 60 * time.Second
	}
	if ds.ImageBaseURL == "" {
		ds.ImageBaseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	if ds.ImageModel == "" {
		ds.ImageModel = "wan2.2-t2i-flash"
	}
	if ds.ImageSize == "" {
		ds.ImageSize = "1280*960"
	}
	if ds.ImageTimeout == 0 {
		ds.ImageTimeout = 120 * time.Second
	}
	if ds.ImagePollInterval == 0 {
		ds.ImagePollInterval = time.Second
	}

	if config.Pipeline.RecognitionTimeout == 0 {
		config.Pipeline.RecognitionTimeout = 30 * time.Second
	}
	if config.Pipeline.MinAudioBytes == 0 {
		config.Pipeline.MinAudioBytes = 1000
	}
	if config.Pipeline.DownloadTimeout == 0 {
		config.Pipeline.DownloadTimeout = 30 * time.Second
	}

	if len(config.CORS.AllowOrigins) == 0 {
		config.CORS.AllowOrigins = []string{"*"}
	}
}

// applyEnv 环境变量优先于配置文件
func applyEnv(config *Config) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		config.DashScope.APIKey = key
	}
	if port := os.Getenv(EnvPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		} else {
			log.Printf("[WARN] 忽略无效的 %s: %s", EnvPort, port)
		}
	}
}

// validateConfig 验证配置是否有效
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	durations := map[string]time.Duration{
		"ffmpeg.timeout":                config.FFmpeg.Timeout,
		"dashscope.llm_timeout":         config.DashScope.LLMTimeout,
		"dashscope.image_timeout":       config.DashScope.ImageTimeout,
		"dashscope.image_poll_interval": config.DashScope.ImagePollInterval,
		"pipeline.recognition_timeout":  config.Pipeline.RecognitionTimeout,
		"pipeline.download_timeout":     config.Pipeline.DownloadTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%w: %s=%v", ErrNegativeDuration, name, d)
		}
	}

	if config.Pipeline.MinAudioBytes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMinAudio, config.Pipeline.MinAudioBytes)
	}
	if config.Paths.StoriesFile == "" {
		return ErrEmptyStoriesFile
	}

	return nil
}

// Addr 服务器监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
