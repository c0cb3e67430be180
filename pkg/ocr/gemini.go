package ocr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiEngine 通过 Gemini API 识别图片
type GeminiEngine struct {
	client *genai.Client
	model  string
}

// NewGeminiEngine 创建 Gemini 识别服务，baseURL 为空时使用官方地址
func NewGeminiEngine(ctx context.Context, apiKey, model, baseURL string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, errors.New("缺少 Gemini API 密钥")
	}
	if model == "" {
		return nil, errors.New("缺少模型名称")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}

	return &GeminiEngine{client: client, model: model}, nil
}

// Name 实现Engine接口
func (g *GeminiEngine) Name() string {
	return "gemini/" + g.model
}

// Recognize 实现Engine接口
func (g *GeminiEngine) Recognize(ctx context.Context, prompt string, img *Image) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Gemini请求失败: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("Gemini响应中没有文本")
	}
	return text, nil
}
