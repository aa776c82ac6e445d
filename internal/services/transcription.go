package services

import (
	"context"
	"log"
	"sync"
	"time"

	"voice_story/internal/apperr"
	"voice_story/internal/audio"
	"voice_story/internal/models"
)

// NoSpeechText 未识别到语音时使用的占位文本
const NoSpeechText = "(无语音内容)"

const defaultRecognitionTimeout = 30 * time.Second

// transcript 单次识别的结果，由识别客户端的回调写入
type transcript struct {
	mu        sync.Mutex
	finalText string
	err       error
	once      sync.Once
	done      chan struct{}
}

func newTranscript() *transcript {
	return &transcript{done: make(chan struct{})}
}

func (t *transcript) completed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *transcript) complete() {
	t.once.Do(func() { close(t.done) })
}

// OnOpen 连接建立
func (t *transcript) OnOpen() {
	log.Printf("[DEBUG] 识别会话已建立")
}

// OnEvent 只保留句末结果
func (t *transcript) OnEvent(event models.RecognitionEvent) {
	if !event.SentenceEnd {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed() {
		return
	}
	t.finalText = event.Text
	log.Printf("[DEBUG] 识别句末结果: %s", event.Text)
}

// OnComplete 识别完成
func (t *transcript) OnComplete() {
	log.Printf("[DEBUG] 识别完成")
	t.complete()
}

// OnError 记录错误并结束等待
func (t *transcript) OnError(err error) {
	t.mu.Lock()
	if !t.completed() {
		t.err = err
	}
	t.mu.Unlock()
	log.Printf("[ERROR] 识别服务错误: %v", err)
	t.complete()
}

// OnClose 连接关闭
func (t *transcript) OnClose() {
	log.Printf("[DEBUG] 识别连接已关闭")
	t.complete()
}

func (t *transcript) result() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalText, t.err
}

// Transcriber 把PCM音频流式发送给识别服务并等待最终文本
type Transcriber struct {
	recognizer models.SpeechRecognizer
	timeout    time.Duration
}

// NewTranscriber 创建转写器，timeout 为发送结束后等待完成的时间
func NewTranscriber(recognizer models.SpeechRecognizer, timeout time.Duration) *Transcriber {
	if timeout <= 0 {
		timeout = defaultRecognitionTimeout
	}
	return &Transcriber{recognizer: recognizer, timeout: timeout}
}

// Transcribe 返回识别文本，未检测到语音时返回 NoSpeechText
func (t *Transcriber) Transcribe(ctx context.Context, pcm *audio.PCMAudio) (string, error) {
	state := newTranscript()
	session := t.recognizer.NewSession(state)
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return "", apperr.Wrap(apperr.KindUnhandled, err, "Speech recognition failed").WithDetails(err.Error())
	}

	sent, err := pcm.Frames(func(frame []byte) (bool, error) {
		more, err := session.SendAudioFrame(frame)
		if err != nil {
			return false, err
		}
		if !more {
			log.Printf("[DEBUG] 识别服务检测到句末，停止发送")
		}
		return more, nil
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnhandled, err, "Speech recognition failed").WithDetails(err.Error())
	}
	log.Printf("[DEBUG] 已发送 %d 帧音频", sent)

	if err := session.Stop(); err != nil {
		log.Printf("[WARN] 结束识别任务失败: %v", err)
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case <-state.done:
	case <-timer.C:
		log.Printf("[ERROR] 等待识别完成超时(%v)", t.timeout)
		return "", apperr.New(apperr.KindRecognitionTimeout, "Speech recognition timed out")
	case <-ctx.Done():
		return "", apperr.Wrap(apperr.KindRecognitionTimeout, ctx.Err(), "Speech recognition timed out")
	}

	text, recErr := state.result()
	if recErr != nil {
		log.Printf("[ERROR] Gummy error: %v", recErr)
	}
	if text == "" {
		log.Printf("[WARN] 音频中未检测到语音")
		text = NoSpeechText
	}
	return text, nil
}
