// Package dashscope 实现阿里云百炼（DashScope）的识别、大模型和文生图客户端
package dashscope

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voice_story/internal/models"
)

// 服务端事件
const (
	eventTaskStarted     = "task-started"
	eventResultGenerated = "result-generated"
	eventTaskFinished    = "task-finished"
	eventTaskFailed      = "task-failed"
)

const (
	DefaultASRURL   = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	DefaultASRModel = "gummy-chat-v1"

	defaultHandshakeTimeout = 5 * time.Second
	defaultStartTimeout     = 10 * time.Second
	closeWaitTimeout        = 2 * time.Second
)

// ASRConfig Gummy实时识别配置
type ASRConfig struct {
	APIKey           string
	URL              string
	Model            string
	Format           string
	SampleRate       int
	HandshakeTimeout time.Duration
	StartTimeout     time.Duration // 等待task-started的时间
}

// Recognizer 创建Gummy识别会话
type Recognizer struct {
	config ASRConfig
	dialer *websocket.Dialer
}

// NewRecognizer 创建识别器
func NewRecognizer(config ASRConfig) *Recognizer {
	if config.URL == "" {
		config.URL = DefaultASRURL
	}
	if config.Model == "" {
		config.Model = DefaultASRModel
	}
	if config.Format == "" {
		config.Format = "wav"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = defaultStartTimeout
	}
	return &Recognizer{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
	}
}

// NewSession 创建一次性识别会话
func (r *Recognizer) NewSession(cb models.RecognitionCallback) models.RecognitionSession {
	return &asrSession{
		config:  r.config,
		dialer:  r.dialer,
		cb:      cb,
		taskID:  strings.ReplaceAll(uuid.NewString(), "-", ""),
		startCh: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

type taskHeader struct {
	Action       string `json:"action,omitempty"`
	TaskID       string `json:"task_id"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type runTaskPayload struct {
	TaskGroup  string         `json:"task_group"`
	Task       string         `json:"task"`
	Function   string         `json:"function"`
	Model      string         `json:"model"`
	Parameters taskParameters `json:"parameters"`
	Input      struct{}       `json:"input"`
}

type taskParameters struct {
	Format               string `json:"format"`
	SampleRate           int    `json:"sample_rate"`
	TranscriptionEnabled bool   `json:"transcription_enabled"`
	TranslationEnabled   bool   `json:"translation_enabled"`
}

type clientMessage struct {
	Header  taskHeader `json:"header"`
	Payload any        `json:"payload"`
}

type serverMessage struct {
	Header  taskHeader `json:"header"`
	Payload struct {
		Output struct {
			Transcription *struct {
				SentenceID  int    `json:"sentence_id"`
				Text        string `json:"text"`
				SentenceEnd bool   `json:"sentence_end"`
			} `json:"transcription"`
		} `json:"output"`
	} `json:"payload"`
}

// asrSession 一个run-task对应一个WebSocket连接
type asrSession struct {
	config ASRConfig
	dialer *websocket.Dialer
	cb     models.RecognitionCallback
	taskID string

	conn    *websocket.Conn
	writeMu sync.Mutex

	stopped   atomic.Bool // 句子结束或任务结束后不再接收音频
	finished  atomic.Bool
	closing   atomic.Bool
	startOnce sync.Once
	startCh   chan error
	done      chan struct{}
	closeOnce sync.Once
}

// Start 建立连接并发送run-task，等待服务端确认
func (s *asrSession) Start(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "bearer "+s.config.APIKey)

	log.Printf("[DEBUG] 正在连接Gummy识别服务: %s", s.config.URL)
	conn, resp, err := s.dialer.DialContext(ctx, s.config.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("连接识别服务失败(HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("连接识别服务失败: %w", err)
	}
	s.conn = conn

	go s.readLoop()

	msg := clientMessage{
		Header: taskHeader{Action: "run-task", TaskID: s.taskID, Streaming: "duplex"},
		Payload: runTaskPayload{
			TaskGroup: "audio",
			Task:      "asr",
			Function:  "recognition",
			Model:     s.config.Model,
			Parameters: taskParameters{
				Format:               s.config.Format,
				SampleRate:           s.config.SampleRate,
				TranscriptionEnabled: true,
				TranslationEnabled:   false,
			},
		},
	}
	if err := s.writeJSON(msg); err != nil {
		s.Close()
		return fmt.Errorf("发送run-task失败: %w", err)
	}

	timer := time.NewTimer(s.config.StartTimeout)
	defer timer.Stop()

	select {
	case err := <-s.startCh:
		if err != nil {
			s.Close()
			return err
		}
		log.Printf("[DEBUG] Gummy任务已启动: %s", s.taskID)
		return nil
	case <-timer.C:
		s.Close()
		return fmt.Errorf("等待识别任务启动超时(%v)", s.config.StartTimeout)
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}
}

// SendAudioFrame 发送一帧音频，返回false表示服务端已判定句子结束
func (s *asrSession) SendAudioFrame(frame []byte) (bool, error) {
	if s.conn == nil {
		return false, fmt.Errorf("识别会话未启动")
	}
	if s.stopped.Load() {
		return false, nil
	}

	s.writeMu.Lock()
	err := s.conn.WriteMessage(websocket.BinaryMessage, frame)
	s.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("发送音频帧失败: %w", err)
	}

	return !s.stopped.Load(), nil
}

// Stop 发送finish-task，任务已结束时不做任何事
func (s *asrSession) Stop() error {
	if s.conn == nil || s.finished.Load() || s.closing.Load() {
		return nil
	}
	msg := clientMessage{
		Header:  taskHeader{Action: "finish-task", TaskID: s.taskID, Streaming: "duplex"},
		Payload: map[string]any{"input": struct{}{}},
	}
	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("发送finish-task失败: %w", err)
	}
	return nil
}

// Close 关闭连接并等待读协程退出，可重复调用
func (s *asrSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.conn == nil {
			return
		}

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()

		select {
		case <-s.done:
		case <-time.After(closeWaitTimeout):
			log.Printf("[WARN] 等待识别读协程退出超时: %s", s.taskID)
		}
	})
	return err
}

func (s *asrSession) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *asrSession) notifyStart(err error) {
	s.startOnce.Do(func() { s.startCh <- err })
}

// readLoop 读取服务端事件并转为回调
func (s *asrSession) readLoop() {
	defer close(s.done)
	defer s.cb.OnClose()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closing.Load() || s.finished.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.notifyStart(fmt.Errorf("识别连接已关闭"))
				return
			}
			log.Printf("[ERROR] 读取识别结果失败: %v", err)
			s.notifyStart(fmt.Errorf("读取识别结果失败: %w", err))
			s.cb.OnError(err)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WARN] 解析识别事件失败: %v, 原始消息: %s", err, string(data))
			continue
		}

		switch msg.Header.Event {
		case eventTaskStarted:
			s.notifyStart(nil)
			s.cb.OnOpen()

		case eventResultGenerated:
			tr := msg.Payload.Output.Transcription
			if tr == nil {
				continue
			}
			if tr.SentenceEnd {
				s.stopped.Store(true)
			}
			s.cb.OnEvent(models.RecognitionEvent{
				RequestID:   msg.Header.TaskID,
				Text:        tr.Text,
				SentenceEnd: tr.SentenceEnd,
			})

		case eventTaskFinished:
			s.stopped.Store(true)
			s.finished.Store(true)
			s.cb.OnComplete()
			return

		case eventTaskFailed:
			s.stopped.Store(true)
			s.finished.Store(true)
			err := fmt.Errorf("识别任务失败: %s %s", msg.Header.ErrorCode, msg.Header.ErrorMessage)
			log.Printf("[ERROR] %v", err)
			s.notifyStart(err)
			s.cb.OnError(err)
			return

		default:
			log.Printf("[DEBUG] 忽略未知识别事件: %s", msg.Header.Event)
		}
	}
}
