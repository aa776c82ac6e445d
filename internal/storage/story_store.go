// Package storage 提供故事列表的文件存储
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voice_story/internal/models"
)

// TimestampLayout 故事时间戳格式（本地时间，微秒精度）
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FileStore 以JSON数组保存故事列表
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore 创建文件存储，文件不存在时视为空列表
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// List 返回全部故事，文件损坏时返回空列表
func (s *FileStore) List() ([]models.StoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add 追加一条故事并返回保存后的记录
func (s *FileStore) Add(input models.StoryInput) (*models.StoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories, err := s.load()
	if err != nil {
		return nil, err
	}

	record := models.StoryRecord{
		ID:        nextID(stories),
		UserText:  input.UserText,
		PoemText:  input.PoemText,
		ImageURL:  input.ImageURL,
		Timestamp: s.now().Format(TimestampLayout),
	}
	stories = append(stories, record)

	if err := s.save(stories); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete 删除指定ID的故事，返回是否有记录被删除
func (s *FileStore) Delete(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories, err := s.load()
	if err != nil {
		return false, err
	}

	kept := stories[:0]
	for _, story := range stories {
		if story.ID != id {
			kept = append(kept, story)
		}
	}
	removed := len(kept) != len(stories)

	if err := s.save(kept); err != nil {
		return false, err
	}
	return removed, nil
}

// nextID 删除过记录后 len+1 可能与已有ID重复，取两者较大值
func nextID(stories []models.StoryRecord) int {
	maxID := len(stories)
	for _, story := range stories {
		if story.ID > maxID {
			maxID = story.ID
		}
	}
	return maxID + 1
}

func (s *FileStore) load() ([]models.StoryRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.StoryRecord{}, nil
		}
		return nil, fmt.Errorf("读取故事文件失败: %w", err)
	}

	var stories []models.StoryRecord
	if err := json.Unmarshal(data, &stories); err != nil {
		log.Printf("[WARN] 故事文件 %s 格式错误，按空列表处理: %v", s.path, err)
		return []models.StoryRecord{}, nil
	}
	if stories == nil {
		stories = []models.StoryRecord{}
	}
	return stories, nil
}

// save 先写临时文件再重命名
func (s *FileStore) save(stories []models.StoryRecord) error {
	data, err := json.MarshalIndent(stories, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化故事列表失败: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建故事目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stories-*.json")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入故事文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入故事文件失败: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("保存故事文件失败: %w", err)
	}
	return nil
}
