package detect

import (
	"fmt"
	"image"
	"regexp"
	"strings"
	"sync"
	"time"

	goocr "github.com/getcharzp/go-ocr"

	"github.com/lumiscan/scanworker/internal/logger"
)

// TextReader 从图像读取文字
type TextReader interface {
	ReadText(img image.Image) (string, error)
}

// OCRConfig OCR 引擎配置
type OCRConfig struct {
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径
	OnnxRuntimeLibPath string `json:"onnxruntime_lib_path"`
	// DetModelPath 检测模型路径
	DetModelPath string `json:"det_model_path"`
	// RecModelPath 识别模型路径
	RecModelPath string `json:"rec_model_path"`
	// DictPath 字典文件路径
	DictPath string `json:"dict_path"`
}

// Recognizer 基于 go-ocr (PaddleOCR) 的文字读取器
type Recognizer struct {
	engine goocr.Engine
	mu     sync.Mutex
	log    *logger.Logger
}

// NewRecognizer 创建 OCR 读取器
func NewRecognizer(cfg OCRConfig) (*Recognizer, error) {
	engine, err := goocr.NewPaddleOcrEngine(goocr.Config{
		OnnxRuntimeLibPath: cfg.OnnxRuntimeLibPath,
		DetModelPath:       cfg.DetModelPath,
		RecModelPath:       cfg.RecModelPath,
		DictPath:           cfg.DictPath,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OCR 引擎失败: %w", err)
	}

	return &Recognizer{
		engine: engine,
		log:    logger.Default().With("ocr"),
	}, nil
}

// ReadText 识别图像中的所有文字并拼接
func (r *Recognizer) ReadText(img image.Image) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	results, err := r.engine.RunOCR(img)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		r.log.LogScan("ocr", false, elapsed, "识别失败")
		return "", fmt.Errorf("OCR 识别失败: %w", err)
	}
	r.log.LogScan("ocr", true, elapsed, fmt.Sprintf("识别到 %d 个文本", len(results)))

	var texts []string
	for _, result := range results {
		if result.Text != "" {
			texts = append(texts, result.Text)
		}
	}
	return strings.Join(texts, " "), nil
}

// Close 释放 OCR 引擎
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		r.engine.Destroy()
		r.engine = nil
	}
	return nil
}

// TextPredicate OCR 文字谓词
// 画面文字命中任一关键字 (不区分大小写、部分匹配) 或正则时视为匹配
type TextPredicate struct {
	reader   TextReader
	keywords []string
	pattern  *regexp.Regexp
}

// NewTextPredicate 创建文字谓词
// keywords 和 pattern 至少提供其一；pattern 为空串表示不用正则
func NewTextPredicate(reader TextReader, keywords []string, pattern string) (*TextPredicate, error) {
	if reader == nil {
		return nil, fmt.Errorf("文字读取器为空")
	}

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("编译正则失败: %w", err)
		}
	}
	if len(keywords) == 0 && re == nil {
		return nil, fmt.Errorf("缺少关键字或正则")
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw != "" {
			lowered = append(lowered, strings.ToLower(kw))
		}
	}

	return &TextPredicate{
		reader:   reader,
		keywords: lowered,
		pattern:  re,
	}, nil
}

// Match 识别画面文字并做关键字/正则匹配
func (p *TextPredicate) Match(img image.Image) (bool, error) {
	text, err := p.reader.ReadText(img)
	if err != nil {
		return false, err
	}
	if text == "" {
		return false, nil
	}

	lowered := strings.ToLower(text)
	for _, kw := range p.keywords {
		if strings.Contains(lowered, kw) {
			return true, nil
		}
	}
	if p.pattern != nil && p.pattern.MatchString(text) {
		return true, nil
	}
	return false, nil
}
