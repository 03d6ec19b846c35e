// Package camera 提供捕获协作方: 以屏幕区域充当"传感器"的整帧捕获、
// 预览画面渲染、转正裁剪执行以及图像编码。
//
// 裁剪约定: CropRegion 在有效 (转正后) 传感器空间内表达，Cropper 先把
// 原始帧按 Photo.Frame.Rotation 顺时针转正，再执行裁剪。
package camera

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/google/uuid"

	"github.com/lumiscan/scanworker/pkg/geometry"
)

// Photo 一次捕获得到的全分辨率照片
type Photo struct {
	// ID 捕获标识
	ID string `json:"id"`
	// Image 原始 (未转正) 图像
	Image image.Image `json:"-"`
	// Frame 传感器几何信息
	Frame geometry.SensorFrame `json:"frame"`
	// TakenAt 捕获时刻
	TakenAt time.Time `json:"taken_at"`
}

// Camera 整帧捕获接口
type Camera interface {
	// Capture 捕获一张全分辨率照片，耗时可能达数百毫秒
	Capture(ctx context.Context) (*Photo, error)
}

// Region 屏幕捕获区域
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScreenCamera 基于 robotgo 的屏幕捕获器，把屏幕区域当作传感器
type ScreenCamera struct {
	region   *Region           // nil 表示全屏
	rotation geometry.Rotation // 帧源附带的转正角度，屏幕帧通常为 0
}

// NewScreenCamera 创建全屏捕获器
func NewScreenCamera() *ScreenCamera {
	return &ScreenCamera{}
}

// NewScreenRegionCamera 创建区域捕获器
func NewScreenRegionCamera(region Region) *ScreenCamera {
	return &ScreenCamera{region: &region}
}

// WithRotation 声明帧源的转正角度 (用于模拟带旋转的帧源)
func (c *ScreenCamera) WithRotation(r geometry.Rotation) *ScreenCamera {
	c.rotation = r
	return c
}

// Capture 捕获一帧
func (c *ScreenCamera) Capture(ctx context.Context) (*Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var img image.Image
	var err error
	if c.region != nil {
		img, err = robotgo.CaptureImg(c.region.X, c.region.Y, c.region.Width, c.region.Height)
	} else {
		img, err = robotgo.CaptureImg()
	}
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("截屏失败: 空图像")
	}

	bounds := img.Bounds()
	return &Photo{
		ID:    uuid.NewString(),
		Image: img,
		Frame: geometry.SensorFrame{
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
			Rotation: c.rotation,
		},
		TakenAt: time.Now(),
	}, nil
}
