package services

import (
	"context"
	"errors"
	"sync"

	"voice_story/internal/models"
)

// fakeRecognizer 按脚本回放识别事件
type fakeRecognizer struct {
	partial    string // 第一帧后推送的中间结果
	final      string // endAfter 帧后推送的句末结果
	endAfter   int
	startErr   error
	errorEvent error // Stop 时先推送错误
	noComplete bool  // Stop 后不触发完成
	lateEvent  string

	mu       sync.Mutex
	frames   int
	stopped  bool
	closed   int
	sessions int
}

func (f *fakeRecognizer) NewSession(cb models.RecognitionCallback) models.RecognitionSession {
	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()
	return &fakeSession{rec: f, cb: cb}
}

func (f *fakeRecognizer) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

type fakeSession struct {
	rec *fakeRecognizer
	cb  models.RecognitionCallback
}

func (s *fakeSession) Start(ctx context.Context) error {
	if s.rec.startErr != nil {
		return s.rec.startErr
	}
	s.cb.OnOpen()
	return nil
}

func (s *fakeSession) SendAudioFrame(frame []byte) (bool, error) {
	s.rec.mu.Lock()
	s.rec.frames++
	n := s.rec.frames
	s.rec.mu.Unlock()

	if n == 1 && s.rec.partial != "" {
		s.cb.OnEvent(models.RecognitionEvent{Text: s.rec.partial})
	}
	if s.rec.final != "" && n == s.rec.endAfter {
		s.cb.OnEvent(models.RecognitionEvent{Text: s.rec.final, SentenceEnd: true})
		return false, nil
	}
	return true, nil
}

func (s *fakeSession) Stop() error {
	s.rec.mu.Lock()
	s.rec.stopped = true
	s.rec.mu.Unlock()

	if s.rec.noComplete {
		return nil
	}
	go func() {
		if s.rec.errorEvent != nil {
			s.cb.OnError(s.rec.errorEvent)
		} else {
			s.cb.OnComplete()
		}
		if s.rec.lateEvent != "" {
			s.cb.OnEvent(models.RecognitionEvent{Text: s.rec.lateEvent, SentenceEnd: true})
		}
		s.cb.OnClose()
	}()
	return nil
}

func (s *fakeSession) Close() error {
	s.rec.mu.Lock()
	s.rec.closed++
	s.rec.mu.Unlock()
	return nil
}

// fakeLLM 返回固定内容
type fakeLLM struct {
	content string
	err     error
	panics  bool

	system string
	user   string
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	if f.panics {
		panic("llm exploded")
	}
	f.system, f.user = system, user
	return f.content, f.err
}

// fakeImageGenerator 返回固定图片地址
type fakeImageGenerator struct {
	urls   []string
	err    error
	panics bool

	calls int
	req   models.ImageRequest
}

func (f *fakeImageGenerator) Generate(ctx context.Context, req models.ImageRequest) ([]string, error) {
	f.calls++
	f.req = req
	if f.panics {
		panic("image exploded")
	}
	return f.urls, f.err
}

var errProvider = errors.New("provider unavailable")
