package camera

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/lumiscan/scanworker/pkg/geometry"
)

// Cropper 裁剪执行器
// 输入为原始照片与有效空间内的裁剪区域，输出转正并裁剪后的图像
type Cropper struct{}

// NewCropper 创建裁剪执行器
func NewCropper() *Cropper {
	return &Cropper{}
}

// Crop 先按 Rotation 顺时针转正原始帧，再裁剪 region
func (c *Cropper) Crop(photo *Photo, region geometry.CropRegion) (image.Image, error) {
	if photo == nil || photo.Image == nil {
		return nil, fmt.Errorf("照片为空")
	}

	upright, err := Upright(photo.Image, photo.Frame.Rotation)
	if err != nil {
		return nil, err
	}

	w, h := photo.Frame.Effective()
	if !region.Within(w, h) {
		return nil, fmt.Errorf("裁剪区域越界: %+v 超出 %dx%d", region, w, h)
	}

	return imaging.Crop(upright, region.ToImageRect()), nil
}

// Upright 将原始帧按给定角度顺时针旋转到正向。
// imaging 的 Rotate 系列为逆时针旋转，这里做相应换算。
func Upright(img image.Image, rotation geometry.Rotation) (image.Image, error) {
	switch rotation {
	case geometry.Rotation0:
		return img, nil
	case geometry.Rotation90:
		return imaging.Rotate270(img), nil
	case geometry.Rotation180:
		return imaging.Rotate180(img), nil
	case geometry.Rotation270:
		return imaging.Rotate90(img), nil
	default:
		return nil, fmt.Errorf("%w: 非法旋转角度 %d", geometry.ErrInvalidGeometry, int(rotation))
	}
}
