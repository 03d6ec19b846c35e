package camera

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Encode 将图像编码为字节流
// format: "png" 或 "jpeg"，默认 "png"
// quality: JPEG 质量 1-100，默认 85
func Encode(img image.Image, format string, quality int) ([]byte, string, error) {
	if img == nil {
		return nil, "", fmt.Errorf("图像为空")
	}

	if format == "" {
		format = "png"
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("PNG 编码失败: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("JPEG 编码失败: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", fmt.Errorf("不支持的图像格式: %s", format)
	}
}

// ImageToBase64 将图像编码为 data URL，用于调试输出
func ImageToBase64(img image.Image, format string, quality int) (string, error) {
	data, mimeType, err := Encode(img, format, quality)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
