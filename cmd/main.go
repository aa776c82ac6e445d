package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"voice_story/internal/audio"
	"voice_story/internal/clients/dashscope"
	"voice_story/internal/config"
	"voice_story/internal/handlers"
	"voice_story/internal/metrics"
	"voice_story/internal/middleware"
	"voice_story/internal/routes"
	"voice_story/internal/servers"
	"voice_story/internal/services"
	"voice_story/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[INFO] 语音成诗服务启动中...")

	// 加载环境变量和配置
	config.LoadEnvFiles(".env", "../.env")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if err := os.MkdirAll(cfg.Paths.ImagesDir, 0755); err != nil {
		log.Fatalf("创建图片目录失败: %v", err)
	}
	log.Printf("[INFO] 故事配图目录: %s", cfg.Paths.ImagesDir)

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// 创建AI服务客户端
	ds := cfg.DashScope
	recognizer := dashscope.NewRecognizer(dashscope.ASRConfig{
		APIKey: ds.APIKey,
		URL:    ds.ASRURL,
		Model:  ds.ASRModel,
	})
	chat := dashscope.NewChatClient(dashscope.ChatConfig{
		APIKey:  ds.APIKey,
		BaseURL: ds.LLMBaseURL,
		Model:   ds.LLMModel,
		Timeout: ds.LLMTimeout,
	})
	images := dashscope.NewImageClient(dashscope.ImageConfig{
		APIKey:       ds.APIKey,
		BaseURL:      ds.ImageBaseURL,
		Model:        ds.ImageModel,
		PollInterval: ds.ImagePollInterval,
		Timeout:      ds.ImageTimeout,
	})

	// 创建流程服务
	pipeline := services.NewPipeline(
		services.PipelineConfig{MinAudioBytes: cfg.Pipeline.MinAudioBytes},
		audio.NewNormalizer(audio.NormalizerConfig{
			FFmpegPath: cfg.FFmpeg.Path,
			Timeout:    cfg.FFmpeg.Timeout,
		}, nil),
		services.NewTranscriber(recognizer, cfg.Pipeline.RecognitionTimeout),
		services.NewComposer(chat),
		services.NewIllustrator(images, services.IllustratorConfig{
			ImagesDir:       cfg.Paths.ImagesDir,
			ImagesURL:       cfg.Paths.ImagesURL,
			Size:            ds.ImageSize,
			DownloadTimeout: cfg.Pipeline.DownloadTimeout,
		}),
		appMetrics,
	)
	store := storage.NewFileStore(cfg.Paths.StoriesFile)

	// 创建HTTP服务
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	middleware.Setup(r, appMetrics, cfg.CORS.AllowOrigins...)
	routes.RegisterRoutes(r, routes.Deps{
		Paths:    cfg.Paths,
		Poem:     handlers.NewPoemHandler(pipeline),
		Stories:  handlers.NewStoryHandler(store, appMetrics),
		Gatherer: reg,
	})

	server := servers.NewHTTPServer(cfg.Addr(), r)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] 收到退出信号: %v", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP服务器启动失败: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("[ERROR] 停止HTTP服务器失败: %v", err)
	}
	log.Println("[INFO] 服务已退出")
}
