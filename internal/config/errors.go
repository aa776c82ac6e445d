package config

import "errors"

// 配置相关错误
var (
	ErrReadConfig       = errors.New("读取配置文件失败")
	ErrParseConfig      = errors.New("解析配置文件失败")
	ErrInvalidPort      = errors.New("服务器端口必须在1-65535之间")
	ErrNegativeDuration = errors.New("超时配置不能为负数")
	ErrInvalidMinAudio  = errors.New("min_audio_bytes不能为负数")
	ErrEmptyStoriesFile = errors.New("故事文件路径不能为空")
)
