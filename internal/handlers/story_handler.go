package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice_story/internal/metrics"
	"voice_story/internal/models"
)

// StoryHandler 故事列表接口
type StoryHandler struct {
	store   models.StoryStore
	metrics *metrics.Metrics
}

// NewStoryHandler 创建处理器，m 可以为nil
func NewStoryHandler(store models.StoryStore, m *metrics.Metrics) *StoryHandler {
	return &StoryHandler{store: store, metrics: m}
}

// List GET /api/stories
func (h *StoryHandler) List(c *gin.Context) {
	stories, err := h.store.List()
	if err != nil {
		log.Printf("[ERROR] 读取故事列表失败: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

// Add POST /api/stories
func (h *StoryHandler) Add(c *gin.Context) {
	var input models.StoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if input.PoemText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No poem text provided"})
		return
	}

	record, err := h.store.Add(input)
	if err != nil {
		log.Printf("[ERROR] 保存故事失败: %v", err)
		writeError(c, err)
		return
	}
	h.metrics.RecordStorySaved()

	log.Printf("[INFO] Saved new story #%d: %s...", record.ID, truncate(record.UserText, 30))
	c.JSON(http.StatusOK, record)
}

// Delete DELETE /api/stories/:id，ID不存在也返回成功
func (h *StoryHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}

	removed, err := h.store.Delete(id)
	if err != nil {
		log.Printf("[ERROR] 删除故事失败: %v", err)
		writeError(c, err)
		return
	}
	h.metrics.RecordStoryDeleted()
	if removed {
		log.Printf("[INFO] Deleted story #%d", id)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
