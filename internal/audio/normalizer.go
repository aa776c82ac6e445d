package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voice_story/internal/apperr"
)

const (
	DefaultFFmpegPath    = "ffmpeg"
	DefaultFFmpegTimeout = 30 * time.Second
	tempFilePermissions  = 0600
)

// CommandRunner 执行外部命令，返回标准错误输出
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

// ExecRunner 使用 os/exec 执行命令
type ExecRunner struct{}

// Run 执行命令并收集stderr
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// NormalizerConfig 转换配置
type NormalizerConfig struct {
	FFmpegPath string
	Timeout    time.Duration
}

// Normalizer 把上传音频转换为识别服务需要的PCM WAV
type Normalizer struct {
	config NormalizerConfig
	runner CommandRunner
}

// NewNormalizer 创建音频规范化器，runner为nil时使用 ExecRunner
func NewNormalizer(config NormalizerConfig, runner CommandRunner) *Normalizer {
	if config.FFmpegPath == "" {
		config.FFmpegPath = DefaultFFmpegPath
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultFFmpegTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Normalizer{config: config, runner: runner}
}

// Normalize 在dir中写入原始音频，必要时转换为PCM WAV。dir 由调用方负责清理
func (n *Normalizer) Normalize(ctx context.Context, dir string, data []byte) (*PCMAudio, error) {
	format := Sniff(data)
	log.Printf("[DEBUG] 检测到音频格式: %s", format)

	inputPath := filepath.Join(dir, "input."+string(format))
	if err := os.WriteFile(inputPath, data, tempFilePermissions); err != nil {
		return nil, fmt.Errorf("写入临时音频文件失败: %w", err)
	}
	log.Printf("[DEBUG] 已保存临时文件: %s, 大小: %d 字节", inputPath, len(data))

	if format == FormatWAV {
		return &PCMAudio{Path: inputPath, Source: format}, nil
	}

	outputPath := filepath.Join(dir, "output.wav")
	log.Printf("[DEBUG] 使用ffmpeg将 %s 转换为 WAV...", format)
	if err := n.convert(ctx, inputPath, outputPath); err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] 转换完成: %s", outputPath)

	return &PCMAudio{Path: outputPath, Source: format, WasConverted: true}, nil
}

// buildArgs ffmpeg参数：PCM s16le、16kHz、单声道
func (n *Normalizer) buildArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		outputPath,
	}
}

func (n *Normalizer) convert(ctx context.Context, inputPath, outputPath string) error {
	runCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	stderr, err := n.runner.Run(runCtx, n.config.FFmpegPath, n.buildArgs(inputPath, outputPath)...)
	if err == nil {
		return nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		log.Printf("[ERROR] 未找到ffmpeg: %s", n.config.FFmpegPath)
		return apperr.Wrap(apperr.KindToolNotFound, err, "ffmpeg not installed")
	}

	details := strings.TrimSpace(string(stderr))
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Printf("[ERROR] ffmpeg执行超时(%v)", n.config.Timeout)
		if details == "" {
			details = fmt.Sprintf("ffmpeg timed out after %v", n.config.Timeout)
		}
		return apperr.Wrap(apperr.KindConversion, err, "Audio conversion failed").WithDetails(details)
	}

	log.Printf("[ERROR] ffmpeg转换失败: %s", details)
	return apperr.Wrap(apperr.KindConversion, err, "Audio conversion failed").WithDetails(details)
}
