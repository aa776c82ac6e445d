// Package models 定义服务间共享的数据结构和接口
package models

// StoryRecord 保存的故事
type StoryRecord struct {
	ID        int    `json:"id"`
	UserText  string `json:"userText"`
	PoemText  string `json:"poemText"`
	ImageURL  string `json:"imageUrl"`
	Timestamp string `json:"timestamp"`
}

// StoryInput 新增故事的请求体
type StoryInput struct {
	UserText string `json:"userText"`
	PoemText string `json:"poemText"`
	ImageURL string `json:"imageUrl"`
}

// StoryStore 故事列表存储
type StoryStore interface {
	List() ([]StoryRecord, error)
	Add(input StoryInput) (*StoryRecord, error)
	Delete(id int) (bool, error)
}
