package detect

import (
	"errors"
	"image"
	"testing"
)

type fakeReader struct {
	text string
	err  error
}

func (r *fakeReader) ReadText(_ image.Image) (string, error) {
	return r.text, r.err
}

func TestNewTextPredicateErrors(t *testing.T) {
	reader := &fakeReader{}

	if _, err := NewTextPredicate(nil, []string{"ok"}, ""); err == nil {
		t.Error("空读取器应返回错误")
	}
	if _, err := NewTextPredicate(reader, nil, ""); err == nil {
		t.Error("既无关键字也无正则应返回错误")
	}
	if _, err := NewTextPredicate(reader, nil, "[invalid"); err == nil {
		t.Error("非法正则应返回错误")
	}
}

func TestTextPredicateMatch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	tests := []struct {
		name     string
		text     string
		keywords []string
		pattern  string
		want     bool
	}{
		{
			name:     "keyword hit",
			text:     "单据编号 INV-2024-001",
			keywords: []string{"单据编号"},
			want:     true,
		},
		{
			name:     "keyword case insensitive",
			text:     "Scan Ready",
			keywords: []string{"scan ready"},
			want:     true,
		},
		{
			name:     "keyword miss",
			text:     "无关内容",
			keywords: []string{"单据"},
			want:     false,
		},
		{
			name:    "pattern hit",
			text:    "编号 INV-2024-001",
			pattern: `INV-\d{4}-\d{3}`,
			want:    true,
		},
		{
			name:    "pattern miss",
			text:    "编号 ABC",
			pattern: `INV-\d{4}-\d{3}`,
			want:    false,
		},
		{
			name:     "keyword or pattern",
			text:     "INV-2024-001",
			keywords: []string{"单据"},
			pattern:  `INV-\d{4}`,
			want:     true,
		},
		{
			name:     "empty text",
			text:     "",
			keywords: []string{"单据"},
			pattern:  `.*`,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := NewTextPredicate(&fakeReader{text: tt.text}, tt.keywords, tt.pattern)
			if err != nil {
				t.Fatalf("NewTextPredicate() error = %v", err)
			}
			got, err := pred.Match(img)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextPredicateReaderError(t *testing.T) {
	readErr := errors.New("引擎挂了")
	pred, err := NewTextPredicate(&fakeReader{err: readErr}, []string{"单据"}, "")
	if err != nil {
		t.Fatalf("NewTextPredicate() error = %v", err)
	}

	got, err := pred.Match(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, readErr) {
		t.Errorf("Match() error = %v, want %v", err, readErr)
	}
	if got {
		t.Error("读取失败时不应匹配")
	}
}

func TestFuncAndAlways(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	calls := 0
	fn := Func(func(image.Image) (bool, error) {
		calls++
		return true, nil
	})
	got, err := fn.Match(img)
	if err != nil || !got || calls != 1 {
		t.Errorf("Func.Match() = (%v, %v), calls = %d", got, err, calls)
	}

	for _, want := range []bool{true, false} {
		got, err := Always(want).Match(img)
		if err != nil {
			t.Fatalf("Always(%v).Match() error = %v", want, err)
		}
		if got != want {
			t.Errorf("Always(%v).Match() = %v", want, got)
		}
	}
}
