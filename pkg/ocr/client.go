package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/utils"
)

// Client 把一次识别的结果（成功或失败）包装成 models.Result
type Client struct {
	Engine      Engine
	Prompt      string
	JPEGQuality int
}

// NewClient 创建识别客户端
func NewClient(engine Engine, jpegQuality int) *Client {
	return &Client{
		Engine:      engine,
		Prompt:      DefaultPrompt,
		JPEGQuality: jpegQuality,
	}
}

// Process 识别一张图片。失败时 Result.Err 有值，不会返回错误也不会 panic
func (c *Client) Process(ctx context.Context, task models.Task) (result models.Result) {
	startTime := time.Now()
	result = models.Result{
		SourcePath: task.SourcePath,
		OutputPath: task.OutputPath,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Text = ""
			result.Stage = models.StagePanic
			result.Err = utils.NewTaskError(models.StagePanic, task.SourcePath, fmt.Errorf("%v", r))
		}
		result.Elapsed = time.Since(startTime)
	}()

	img, err := LoadImage(task.SourcePath, c.JPEGQuality)
	if err != nil {
		result.Stage = models.StageDecode
		result.Err = utils.NewTaskError(models.StageDecode, task.SourcePath, err)
		return result
	}

	text, err := c.Engine.Recognize(ctx, c.Prompt, img)
	if err == nil && text == "" {
		err = fmt.Errorf("%s 未返回文本", c.Engine.Name())
	}
	if err != nil {
		result.Stage = models.StageRecognize
		result.Err = utils.NewTaskError(models.StageRecognize, task.SourcePath, err)
		return result
	}

	result.Text = text
	return result
}
