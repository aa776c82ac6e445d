// Package routes 注册HTTP路由和静态资源
package routes

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice_story/internal/config"
	"voice_story/internal/handlers"
)

// Deps 路由依赖
type Deps struct {
	Paths    config.PathsConfig
	Poem     *handlers.PoemHandler
	Stories  *handlers.StoryHandler
	Gatherer prometheus.Gatherer // 为nil时不注册 /metrics
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/health", handlers.Health)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// 注册接口路由
	api := r.Group("/api")
	{
		api.POST("/generate-poem", deps.Poem.GeneratePoem)
		api.GET("/stories", deps.Stories.List)
		api.POST("/stories", deps.Stories.Add)
		api.DELETE("/stories/:id", deps.Stories.Delete)
	}

	RegisterStaticRoutes(r, deps.Paths)
}

// RegisterStaticRoutes 注册前端页面、模型和故事配图
func RegisterStaticRoutes(r *gin.Engine, paths config.PathsConfig) {
	index := filepath.Join(paths.StaticDir, paths.IndexFile)
	r.GET("/", func(c *gin.Context) {
		c.File(index)
	})

	r.Static("/models", paths.ModelsDir)
	r.Static("/js", filepath.Join(paths.StaticDir, "js"))
	r.Static("/"+strings.Trim(paths.ImagesURL, "/"), paths.ImagesDir)

	r.NoRoute(staticFallback(paths.StaticDir))
}

// staticFallback 其余GET请求按静态目录中的文件处理
func staticFallback(dir string) gin.HandlerFunc {
	root := http.Dir(dir)
	fileServer := http.FileServer(root)

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		method := c.Request.Method
		if (method == http.MethodGet || method == http.MethodHead) && !strings.HasPrefix(p, "/api/") {
			if f, err := root.Open(p); err == nil {
				st, statErr := f.Stat()
				f.Close()
				if statErr == nil && !st.IsDir() {
					fileServer.ServeHTTP(c.Writer, c.Request)
					return
				}
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	}
}
