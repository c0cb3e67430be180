package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/njritter/ffe/pkg/utils"
)

// DefaultChatBaseURL OpenAI兼容接口的默认地址
const DefaultChatBaseURL = "https://api.openai.com/v1"

// ChatEngine 通过 OpenAI 兼容的 chat/completions 接口识别图片
type ChatEngine struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// ContentPart 多模态消息中的一段内容
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 图片地址，这里使用 data URI
type ImageURL struct {
	URL string `json:"url"`
}

// ChatMessage 表示聊天消息
type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ChatRequest 表示对API的请求
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse 表示API的响应
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewChatEngine 创建一个新的API客户端
func NewChatEngine(apiKey, model, baseURL string) *ChatEngine {
	if baseURL == "" {
		baseURL = DefaultChatBaseURL
	}
	return &ChatEngine{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// Name 实现Engine接口
func (c *ChatEngine) Name() string {
	return "openai/" + c.Model
}

// Recognize 实现Engine接口
func (c *ChatEngine) Recognize(ctx context.Context, prompt string, img *Image) (string, error) {
	url := c.BaseURL + "/chat/completions"

	dataURI := "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	requestBody := ChatRequest{
		Model: c.Model,
		Messages: []ChatMessage{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}},
				},
			},
		},
	}

	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	utils.Debug("发送API请求到 %s", url)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API返回错误状态码: %d, 响应: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API返回错误: %s", response.Error.Message)
	}

	if len(response.Choices) > 0 && response.Choices[0].Message.Content != "" {
		return response.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("API响应中没有生成内容")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
