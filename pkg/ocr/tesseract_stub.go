//go:build !tesseract

package ocr

import "errors"

// ErrTesseractNotEnabled 未使用 -tags tesseract 编译时返回
var ErrTesseractNotEnabled = errors.New("未启用Tesseract支持，请使用 -tags tesseract 重新编译")

// NewTesseractEngine 未启用本地识别时的占位实现
func NewTesseractEngine(language string) (Engine, error) {
	return nil, ErrTesseractNotEnabled
}
