// Package handlers 提供HTTP接口处理器
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice_story/internal/apperr"
)

// Health 健康检查
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "voice_story",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// writeError 按错误类别返回 {"error": ..., "details": ...}
func writeError(c *gin.Context, err error) {
	appErr := apperr.Unhandled(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	c.JSON(apperr.HTTPStatus(appErr.Kind), body)
}
