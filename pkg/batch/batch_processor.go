package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/njritter/ffe/internal/ui"
	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/scanner"
	"github.com/njritter/ffe/pkg/utils"
)

// Recognizer 识别单张图片，失败信息放在 Result 中
type Recognizer interface {
	Process(ctx context.Context, task models.Task) models.Result
}

// ResultWriter 保存识别结果
type ResultWriter interface {
	Save(sourcePath, text string) (bool, error)
}

// ProgressCallback 进度回调；result 为 nil 表示开始处理，total 为 0 表示总数未知
type ProgressCallback func(current, total int, task models.Task, result *models.Result)

// BatchProcessor 批量处理器
type BatchProcessor struct {
	Scanner          *scanner.ImageScanner
	Recognizer       Recognizer
	Writer           ResultWriter
	MaxConcurrency   int
	ProgressCallback ProgressCallback
	Terminal         *ui.TerminalManager // 为 nil 时不显示进度条
	ErrorStats       *utils.ErrorStats
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(s *scanner.ImageScanner, recognizer Recognizer, writer ResultWriter, maxConcurrency int, callback ProgressCallback) *BatchProcessor {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &BatchProcessor{
		Scanner:          s,
		Recognizer:       recognizer,
		Writer:           writer,
		MaxConcurrency:   maxConcurrency,
		ProgressCallback: callback,
		ErrorStats:       utils.NewErrorStats(),
	}
}

// SetTerminal 设置进度条输出
func (p *BatchProcessor) SetTerminal(tm *ui.TerminalManager) {
	p.Terminal = tm
}

// ProcessTask 识别并保存一张图片，任何失败都记录在返回的 Result 中
func (p *BatchProcessor) ProcessTask(ctx context.Context, task models.Task) (result models.Result) {
	startTime := time.Now()
	result = models.Result{SourcePath: task.SourcePath, OutputPath: task.OutputPath}

	defer func() {
		if r := recover(); r != nil {
			result.Saved = false
			result.Stage = models.StagePanic
			result.Err = utils.NewTaskError(models.StagePanic, task.SourcePath, fmt.Errorf("%v", r))
		}
		result.Elapsed = time.Since(startTime)
		if result.Err != nil {
			p.ErrorStats.Add(result.Stage, result.Err)
		}
	}()

	result = p.Recognizer.Process(ctx, task)
	if result.Err != nil {
		return result
	}

	saved, err := p.Writer.Save(task.SourcePath, result.Text)
	if err == nil && !saved {
		err = errors.New("没有可保存的文本")
	}
	if err != nil {
		result.Stage = models.StageWrite
		result.Err = utils.NewTaskError(models.StageWrite, task.SourcePath, err)
		return result
	}

	result.Saved = true
	return result
}

// RunSequential 边扫描边逐个处理
func (p *BatchProcessor) RunSequential(ctx context.Context, root string) (models.RunSummary, error) {
	var summary models.RunSummary
	startTime := time.Now()

	err := p.Scanner.Walk(root, func(task models.Task) error {
		summary.Total++
		p.notify(summary.Total, 0, task, nil)

		result := p.ProcessTask(ctx, task)
		summary.Record(result)
		p.notify(summary.Total, 0, task, &result)
		return nil
	})

	summary.Elapsed = time.Since(startTime)
	return summary, err
}

// RunConcurrent 先扫描出全部任务，再交给工作池处理
func (p *BatchProcessor) RunConcurrent(ctx context.Context, root string) (models.RunSummary, error) {
	tasks, err := p.Scanner.Scan(root)
	if err != nil {
		return models.RunSummary{}, err
	}
	return p.ProcessTasks(ctx, tasks), nil
}

// ProcessTasks 用固定大小的工作池处理任务，按完成顺序统计结果
func (p *BatchProcessor) ProcessTasks(ctx context.Context, tasks []models.Task) models.RunSummary {
	summary := models.RunSummary{Total: len(tasks)}
	if len(tasks) == 0 {
		return summary
	}

	startTime := time.Now()

	var bar *ui.ProgressBar
	if p.Terminal != nil {
		bar = ui.NewProgressBar(len(tasks), "处理图片", "file")
		p.Terminal.UpdateProgress(bar)
	}

	results := make(chan models.Result, p.MaxConcurrency)

	// 提交任务，SetLimit 限制同时运行的协程数
	go func() {
		var g errgroup.Group
		g.SetLimit(p.MaxConcurrency)
		for _, task := range tasks {
			task := task
			g.Go(func() error {
				results <- p.ProcessTask(ctx, task)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	// 只有这里修改计数和进度条
	completed := 0
	for result := range results {
		completed++
		summary.Record(result)
		p.notify(completed, len(tasks), models.Task{SourcePath: result.SourcePath, OutputPath: result.OutputPath}, &result)

		if bar != nil {
			bar.Update(completed, fmt.Sprintf("成功 %d 失败 %d", summary.Successful, summary.Failed))
			p.Terminal.UpdateProgress(bar)
		}
	}

	if bar != nil {
		p.Terminal.FinishProgress()
	}

	summary.Elapsed = time.Since(startTime)
	return summary
}

func (p *BatchProcessor) notify(current, total int, task models.Task, result *models.Result) {
	if p.ProgressCallback != nil {
		p.ProgressCallback(current, total, task, result)
	}
}
