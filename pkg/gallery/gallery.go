// Package gallery 提供捕获结果的落盘存储
package gallery

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lumiscan/scanworker/internal/logger"
	"github.com/lumiscan/scanworker/pkg/camera"
)

// Store 目录式图库
type Store struct {
	dir     string
	format  string // "png" 或 "jpeg"
	quality int    // JPEG 质量
	log     *logger.Logger
}

// NewStore 创建图库，format 为空时默认 png
func NewStore(dir, format string, quality int) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("存储目录为空")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	if format == "" {
		format = "png"
	}

	return &Store{
		dir:     dir,
		format:  format,
		quality: quality,
		log:     logger.Default().With("gallery"),
	}, nil
}

// Save 保存一张图像，返回文件路径作为捕获句柄
// id 为空时自动生成
func (s *Store) Save(img image.Image, id string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("图像为空")
	}
	if id == "" {
		id = uuid.NewString()
	}

	data, _, err := camera.Encode(img, s.format, s.quality)
	if err != nil {
		return "", err
	}

	ext := "png"
	if s.format == "jpeg" || s.format == "jpg" {
		ext = "jpg"
	}
	name := fmt.Sprintf("%s_%s.%s", time.Now().Format("20060102_150405"), id, ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入图像文件失败: %w", err)
	}

	s.log.Debug("已保存 %s (%d 字节)", path, len(data))
	return path, nil
}

// Dir 存储目录
func (s *Store) Dir() string {
	return s.dir
}
