package geometry

import (
	"image"
	"testing"
)

func TestViewportMeasured(t *testing.T) {
	tests := []struct {
		name string
		vp   Viewport
		want bool
	}{
		{name: "measured", vp: NewViewport(400, 300), want: true},
		{name: "zero value is unmeasured", vp: Viewport{}, want: false},
		{name: "zero width", vp: NewViewport(0, 300), want: false},
		{name: "zero height", vp: NewViewport(400, 0), want: false},
		{name: "negative", vp: NewViewport(-400, 300), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vp.Measured(); got != tt.want {
				t.Errorf("Measured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotationValid(t *testing.T) {
	valid := []Rotation{Rotation0, Rotation90, Rotation180, Rotation270}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("Rotation(%d).Valid() = false, want true", int(r))
		}
	}
	for _, r := range []Rotation{45, -90, 360, 1} {
		if r.Valid() {
			t.Errorf("Rotation(%d).Valid() = true, want false", int(r))
		}
	}
}

func TestSensorFrameEffective(t *testing.T) {
	tests := []struct {
		name    string
		frame   SensorFrame
		wantW   int
		wantH   int
		swapped bool
	}{
		{name: "rotation 0", frame: SensorFrame{Width: 1600, Height: 1200, Rotation: Rotation0}, wantW: 1600, wantH: 1200},
		{name: "rotation 90 swaps", frame: SensorFrame{Width: 1600, Height: 1200, Rotation: Rotation90}, wantW: 1200, wantH: 1600, swapped: true},
		{name: "rotation 180", frame: SensorFrame{Width: 1600, Height: 1200, Rotation: Rotation180}, wantW: 1600, wantH: 1200},
		{name: "rotation 270 swaps", frame: SensorFrame{Width: 1600, Height: 1200, Rotation: Rotation270}, wantW: 1200, wantH: 1600, swapped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.frame.Effective()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Effective() = (%d, %d), want (%d, %d)", w, h, tt.wantW, tt.wantH)
			}
			if got := tt.frame.Rotation.Swapped(); got != tt.swapped {
				t.Errorf("Swapped() = %v, want %v", got, tt.swapped)
			}
		})
	}
}

func TestRectOfInterestOrdering(t *testing.T) {
	a := NormalizedRect(0.9, 0.8, 0.1, 0.2)
	b := NormalizedRect(0.1, 0.2, 0.9, 0.8)
	if a != b {
		t.Errorf("角点排序后应相等: %+v != %+v", a, b)
	}

	p := PixelRect(300, 200, -200, -100)
	q := PixelRect(100, 100, 200, 100)
	if p != q {
		t.Errorf("负宽高应被归一为正向矩形: %+v != %+v", p, q)
	}
}

func TestRectOfInterestPadding(t *testing.T) {
	r := FullViewportRect().WithPadding(-0.5)
	if r.Padding() != 0 {
		t.Errorf("负外扩比例应钳为 0，got %g", r.Padding())
	}

	r = FullViewportRect().WithPadding(0.1)
	if r.Padding() != 0.1 {
		t.Errorf("Padding() = %g, want 0.1", r.Padding())
	}
}

func TestParseFitMode(t *testing.T) {
	if ParseFitMode("contain") != FitContain {
		t.Error(`ParseFitMode("contain") != FitContain`)
	}
	if ParseFitMode("cover") != FitCover {
		t.Error(`ParseFitMode("cover") != FitCover`)
	}
	if ParseFitMode("") != FitCover {
		t.Error("未知输入应回落到 FitCover")
	}
}

func TestCropRegionHelpers(t *testing.T) {
	c := CropRegion{X: 10, Y: 20, Width: 30, Height: 40}

	if got, want := c.ToImageRect(), image.Rect(10, 20, 40, 60); got != want {
		t.Errorf("ToImageRect() = %v, want %v", got, want)
	}

	if !c.Within(100, 100) {
		t.Error("Within(100, 100) = false, want true")
	}
	if c.Within(39, 100) {
		t.Error("超宽区域 Within 应为 false")
	}
	if (CropRegion{X: -1, Y: 0, Width: 1, Height: 1}).Within(10, 10) {
		t.Error("负原点 Within 应为 false")
	}
	if (CropRegion{X: 0, Y: 0, Width: 0, Height: 1}).Within(10, 10) {
		t.Error("零宽区域 Within 应为 false")
	}
}
