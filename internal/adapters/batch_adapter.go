package adapters

import (
	"context"
	"sync/atomic"

	"github.com/njritter/ffe/pkg/batch"
	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/output"
)

// BatchProcessorAdapter 批处理器适配器，供监控模式逐个处理新图片
type BatchProcessorAdapter struct {
	Processor *batch.BatchProcessor
	ctx       context.Context
	sem       chan struct{} // 与批处理相同的并发上限
	processed int64
}

// NewBatchProcessorAdapter 创建新的批处理器适配器
func NewBatchProcessorAdapter(ctx context.Context, processor *batch.BatchProcessor) *BatchProcessorAdapter {
	return &BatchProcessorAdapter{
		Processor: processor,
		ctx:       ctx,
		sem:       make(chan struct{}, processor.MaxConcurrency),
	}
}

// IsRecognizedFile 是否为需要处理的图片
func (a *BatchProcessorAdapter) IsRecognizedFile(filePath string) bool {
	s := a.Processor.Scanner
	if !s.IsSupported(filePath) {
		return false
	}
	if !s.SkipExisting {
		return true
	}
	task := models.Task{SourcePath: filePath, OutputPath: output.DeriveOutputPath(filePath)}
	return len(s.FilterNewFiles([]models.Task{task})) == 1
}

// ProcessFile 处理文件
func (a *BatchProcessorAdapter) ProcessFile(filePath string) bool {
	a.sem <- struct{}{}
	defer func() { <-a.sem }()

	task := models.Task{SourcePath: filePath, OutputPath: output.DeriveOutputPath(filePath)}
	result := a.Processor.ProcessTask(a.ctx, task)

	n := int(atomic.AddInt64(&a.processed, 1))
	if cb := a.Processor.ProgressCallback; cb != nil {
		cb(n, 0, task, &result)
	}
	return result.OK()
}

// Processed 监控模式下已处理的文件数
func (a *BatchProcessorAdapter) Processed() int {
	return int(atomic.LoadInt64(&a.processed))
}
