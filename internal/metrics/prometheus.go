// Package metrics 定义语音成诗服务的Prometheus指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 流程阶段名称
const (
	StageDecode       = "decode"
	StageNormalize    = "normalize"
	StageTranscribe   = "transcribe"
	StageCompose      = "compose"
	StageIllustrate   = "illustrate"
	StageWholeRequest = "total"
)

// Metrics 服务的全部指标
type Metrics struct {
	// 流程指标
	PipelineRequests *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	AudioBytes       prometheus.Histogram

	// 各阶段结果
	AudioConversions   *prometheus.CounterVec
	EmptyTranscripts   prometheus.Counter
	CompositionParses  *prometheus.CounterVec
	IllustrationResult *prometheus.CounterVec

	// 故事存储
	StoriesSaved   prometheus.Counter
	StoriesDeleted prometheus.Counter

	// HTTP 接口
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics 创建并注册指标，reg 为nil时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PipelineRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_story_pipeline_requests_total",
			Help: "Total number of voice-to-story requests by outcome",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_story_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms 到约80s
		}, []string{"stage"}),
		AudioBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_story_audio_bytes",
			Help:    "Size of decoded audio uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB 到约4MB
		}),

		AudioConversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_story_audio_conversions_total",
			Help: "Audio normalizations by source format",
		}, []string{"format", "converted"}),
		EmptyTranscripts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_story_empty_transcripts_total",
			Help: "Recognitions that produced no speech",
		}),
		CompositionParses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_story_composition_parses_total",
			Help: "LLM output parses by outcome",
		}, []string{"outcome"}),
		IllustrationResult: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_story_illustrations_total",
			Help: "Illustration attempts by result",
		}, []string{"result"}),

		StoriesSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_story_stories_saved_total",
			Help: "Total number of stories saved",
		}),
		StoriesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_story_stories_deleted_total",
			Help: "Total number of story delete requests",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_story_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_story_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// ObserveStage 记录阶段耗时
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordRequest 记录请求结果，outcome 为 ok 或错误类别
func (m *Metrics) RecordRequest(outcome string) {
	if m == nil {
		return
	}
	m.PipelineRequests.WithLabelValues(outcome).Inc()
}

// RecordAudio 记录音频大小和格式
func (m *Metrics) RecordAudio(size int, format string, converted bool) {
	if m == nil {
		return
	}
	m.AudioBytes.Observe(float64(size))
	label := "false"
	if converted {
		label = "true"
	}
	m.AudioConversions.WithLabelValues(format, label).Inc()
}

// RecordEmptyTranscript 识别结果为空
func (m *Metrics) RecordEmptyTranscript() {
	if m == nil {
		return
	}
	m.EmptyTranscripts.Inc()
}

// RecordCompositionParse 记录大模型输出解析结果
func (m *Metrics) RecordCompositionParse(outcome string) {
	if m == nil {
		return
	}
	m.CompositionParses.WithLabelValues(outcome).Inc()
}

// RecordIllustration result 为 local、remote、none 或 failed
func (m *Metrics) RecordIllustration(result string) {
	if m == nil {
		return
	}
	m.IllustrationResult.WithLabelValues(result).Inc()
}

// RecordStorySaved 故事保存成功
func (m *Metrics) RecordStorySaved() {
	if m == nil {
		return
	}
	m.StoriesSaved.Inc()
}

// RecordStoryDeleted 收到删除请求
func (m *Metrics) RecordStoryDeleted() {
	if m == nil {
		return
	}
	m.StoriesDeleted.Inc()
}

// RecordHTTPRequest 记录HTTP请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
