package ocr

import (
	"context"
	"fmt"

	"github.com/njritter/ffe/pkg/models"
)

// DefaultPrompt 发送给视觉模型的固定指令
const DefaultPrompt = "Extract all text visible in this image. Maintain the original structure and layout as much as possible."

// Engine 定义了文字识别服务的接口
type Engine interface {
	// Name 服务名称
	Name() string
	// Recognize 按指令识别图片中的文字
	Recognize(ctx context.Context, prompt string, img *Image) (string, error)
}

// NewEngine 根据配置创建识别服务
func NewEngine(ctx context.Context, config *models.Config) (Engine, error) {
	switch config.Provider {
	case models.ProviderGemini, "":
		engine, err := NewGeminiEngine(ctx, config.APIKey, config.ModelName, config.BaseURL)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case models.ProviderOpenAI:
		return NewChatEngine(config.APIKey, config.ModelName, config.BaseURL), nil
	case models.ProviderTesseract:
		// 本地识别时 model_name 作为 Tesseract 语言，如 eng+chi_sim
		engine, err := NewTesseractEngine(config.ModelName)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("未知的识别服务: %s", config.Provider)
	}
}
