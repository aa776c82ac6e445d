package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice_story/internal/models"
)

// PoemHandler 语音成诗接口
type PoemHandler struct {
	generator models.PoemGenerator
}

// NewPoemHandler 创建处理器
func NewPoemHandler(generator models.PoemGenerator) *PoemHandler {
	return &PoemHandler{generator: generator}
}

type generatePoemRequest struct {
	Audio string `json:"audio"`
}

// GeneratePoem POST /api/generate-poem
func (h *PoemHandler) GeneratePoem(c *gin.Context) {
	var req generatePoemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[WARN] 请求体解析失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.generator.HandleVoiceRequest(c.Request.Context(), req.Audio)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
