package models

import "context"

// RecognitionEvent 识别服务返回的一条转写结果
type RecognitionEvent struct {
	RequestID   string // 识别任务ID
	Text        string // 转写文本
	SentenceEnd bool   // 是否为句末结果，false表示中间结果
}

// RecognitionCallback 识别会话事件回调，由识别客户端的读取协程调用
type RecognitionCallback interface {
	OnOpen()
	OnEvent(event RecognitionEvent)
	OnComplete()
	OnError(err error)
	OnClose()
}

// RecognitionSession 一次流式识别会话
type RecognitionSession interface {
	// Start 建立连接并启动识别任务
	Start(ctx context.Context) error

	// SendAudioFrame 发送一帧音频，返回false表示服务端已检测到句末，应停止发送
	SendAudioFrame(frame []byte) (bool, error)

	// Stop 通知服务端音频发送结束
	Stop() error

	// Close 释放连接，可重复调用
	Close() error
}

// SpeechRecognizer 识别会话工厂
type SpeechRecognizer interface {
	NewSession(callback RecognitionCallback) RecognitionSession
}
