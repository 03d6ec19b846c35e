// Package detect 提供检测谓词策略。
//
// 谓词对一帧预览画面只产出一个布尔匹配信号，控制器不关心信号如何得出。
// 手动框选、轮廓检测、OCR 关键字检测等多种扫描方式因此共享同一套
// 去抖状态机与坐标换算，各自只是一个薄谓词。
package detect

import "image"

// Predicate 检测谓词: 判断一帧画面中是否出现捕获候选
type Predicate interface {
	// Match 分析一帧画面，返回是否匹配
	Match(img image.Image) (bool, error)
}

// Func 函数式谓词适配器
type Func func(img image.Image) (bool, error)

// Match 实现 Predicate
func (f Func) Match(img image.Image) (bool, error) {
	return f(img)
}

// Always 恒定谓词，用于手动模式与测试
func Always(matched bool) Predicate {
	return Func(func(image.Image) (bool, error) {
		return matched, nil
	})
}
