//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine 使用本地 Tesseract 识别，不需要网络和密钥
type TesseractEngine struct {
	Language string
}

// NewTesseractEngine 创建本地识别服务，language 为空时使用 eng
func NewTesseractEngine(language string) (*TesseractEngine, error) {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{Language: language}, nil
}

// Name 实现Engine接口
func (t *TesseractEngine) Name() string {
	return "tesseract/" + t.Language
}

// Recognize 实现Engine接口；Tesseract 不使用指令文本
func (t *TesseractEngine) Recognize(ctx context.Context, prompt string, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(t.Language, "+")...); err != nil {
		return "", fmt.Errorf("设置识别语言 %q 失败: %w", t.Language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("设置版面分析模式失败: %w", err)
	}
	if err := client.SetImageFromBytes(img.Data); err != nil {
		return "", fmt.Errorf("设置图片失败: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("Tesseract识别失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Tesseract未识别出文本")
	}
	return text, nil
}
