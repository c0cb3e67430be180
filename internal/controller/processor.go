package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/njritter/ffe/internal/adapters"
	"github.com/njritter/ffe/internal/ui"
	"github.com/njritter/ffe/internal/watcher"
	"github.com/njritter/ffe/pkg/batch"
	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/ocr"
	"github.com/njritter/ffe/pkg/output"
	"github.com/njritter/ffe/pkg/scanner"
	"github.com/njritter/ffe/pkg/utils"
)

// WatchDebounce 监控模式下文件稳定多久后开始处理
var WatchDebounce = 2 * time.Second

// ProcessorController 处理器控制器，协调各个组件工作
type ProcessorController struct {
	Config *models.Config
	RunID  string

	Processor *batch.BatchProcessor
	Terminal  *ui.TerminalManager
	Engine    ocr.Engine

	// 统计数据
	Stats models.RunSummary

	out     io.Writer
	log     *logrus.Entry
	cleanup []func()
	mu      sync.Mutex
}

// NewProcessorController 创建处理器控制器，out 为控制台输出
func NewProcessorController(config *models.Config, engine ocr.Engine, out io.Writer) *ProcessorController {
	runID := uuid.NewString()
	pc := &ProcessorController{
		Config:   config,
		RunID:    runID,
		Engine:   engine,
		Terminal: ui.NewTerminalManager(out),
		out:      out,
		log:      utils.WithField("run_id", runID),
	}

	client := ocr.NewClient(engine, config.JPEGQuality)
	pc.Processor = batch.NewBatchProcessor(
		scanner.NewImageScanner(config.SkipExisting),
		client,
		output.NewWriter(),
		config.MaxWorkers,
		pc.progressCallback,
	)
	return pc
}

// SetTerminal 替换终端输出，例如使用全局终端管理器
func (pc *ProcessorController) SetTerminal(tm *ui.TerminalManager) {
	pc.Terminal = tm
}

func (pc *ProcessorController) progressCallback(current, total int, task models.Task, result *models.Result) {
	name := filepath.Base(task.SourcePath)

	if result == nil {
		pc.Terminal.PrintMsg("[%d] 处理 %s", current, task.SourcePath)
		return
	}

	if result.OK() {
		pc.Terminal.PrintMsg("%s %s - %s", color.GreenString("✓"), name, utils.FormatSeconds(result.Elapsed))
		pc.log.WithFields(logrus.Fields{
			"file":    task.SourcePath,
			"output":  result.OutputPath,
			"elapsed": result.Elapsed.String(),
		}).Info("识别完成")
		return
	}

	pc.Terminal.PrintMsg("%s %s - 失败: %v", color.RedString("✗"), name, result.Err)
	pc.log.WithFields(logrus.Fields{
		"file":  task.SourcePath,
		"stage": result.Stage,
	}).Warnf("识别失败: %v", result.Err)
}

// Run 按配置的模式处理根目录下的所有图片
func (pc *ProcessorController) Run(ctx context.Context) (models.RunSummary, error) {
	pc.log.WithFields(logrus.Fields{
		"root":    pc.Config.RootDirectory,
		"mode":    pc.Config.Mode,
		"engine":  pc.Engine.Name(),
		"workers": pc.Config.MaxWorkers,
	}).Info("开始处理")

	var (
		summary models.RunSummary
		err     error
	)

	switch pc.Config.Mode {
	case models.ModeSequential:
		fmt.Fprintf(pc.out, "开始处理目录中的图片: %s\n", pc.Config.RootDirectory)
		summary, err = pc.Processor.RunSequential(ctx, pc.Config.RootDirectory)
	default:
		summary, err = pc.runConcurrent(ctx)
	}
	if err != nil {
		return summary, err
	}

	pc.Stats = summary
	return summary, nil
}

func (pc *ProcessorController) runConcurrent(ctx context.Context) (models.RunSummary, error) {
	fmt.Fprintf(pc.out, "使用 %d 个工作协程并行处理\n", pc.Config.MaxWorkers)
	fmt.Fprintln(pc.out, "正在扫描目录...")

	tasks, err := pc.Processor.Scanner.Scan(pc.Config.RootDirectory)
	if err != nil {
		return models.RunSummary{}, err
	}

	fmt.Fprintf(pc.out, "在 %s 中找到 %d 个待处理图片\n", pc.Config.RootDirectory, len(tasks))
	if len(tasks) == 0 {
		fmt.Fprintln(pc.out, "没有需要处理的新图片")
		return models.RunSummary{}, nil
	}

	if pc.Config.ShowProgress {
		pc.Processor.SetTerminal(pc.Terminal)
		utils.EnableTerminalProgress()
		defer utils.DisableTerminalProgress()
	}

	return pc.Processor.ProcessTasks(ctx, tasks), nil
}

// PrintSummary 打印统计信息
func (pc *ProcessorController) PrintSummary(summary models.RunSummary) {
	fmt.Fprintln(pc.out)
	fmt.Fprintf(pc.out, "处理完成，用时 %.2f 秒 (%s)\n", summary.Elapsed.Seconds(),
		utils.FormatTimeDuration(summary.Elapsed.Seconds()))

	line := fmt.Sprintf("总计: %d, 成功: %d, 失败: %d", summary.Total, summary.Successful, summary.Failed)
	if summary.Failed > 0 {
		fmt.Fprintln(pc.out, color.YellowString(line))
	} else {
		fmt.Fprintln(pc.out, color.GreenString(line))
	}

	if summary.Total > 0 {
		fmt.Fprintf(pc.out, "平均处理时间: %.2f 秒/张\n", summary.AveragePerImage().Seconds())
		if summary.Successful > 0 {
			fmt.Fprintf(pc.out, "平均成功处理时间: %.2f 秒/张\n", summary.AveragePerSuccess().Seconds())
		}
	}

	pc.Processor.ErrorStats.PrintErrorStats()
	pc.log.WithFields(logrus.Fields{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"elapsed":    summary.Elapsed.String(),
	}).Info("处理结束")
}

// StartWatchMode 监控根目录中的新图片，直到 ctx 结束或收到中断信号
func (pc *ProcessorController) StartWatchMode(ctx context.Context) error {
	if !utils.CheckDirExists(pc.Config.RootDirectory) {
		return &models.ConfigValidationError{Field: "RootDirectory", Message: "目录不存在: " + pc.Config.RootDirectory}
	}

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	adapter := adapters.NewBatchProcessorAdapter(ctx, pc.Processor)
	stop, err := watcher.StartFolderMonitoring(pc.Config.RootDirectory, adapter, WatchDebounce)
	if err != nil {
		return err
	}
	pc.addCleanup(stop)

	fmt.Fprintln(pc.out, color.CyanString("监控已启动，按Ctrl+C退出..."))
	<-ctx.Done()

	pc.Cleanup()
	fmt.Fprintf(pc.out, "监控模式共处理 %d 个图片\n", adapter.Processed())
	return nil
}

// 添加清理函数
func (pc *ProcessorController) addCleanup(cleanup func()) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cleanup = append(pc.cleanup, cleanup)
}

// Cleanup 逆序执行所有清理函数
func (pc *ProcessorController) Cleanup() {
	pc.mu.Lock()
	cleanup := pc.cleanup
	pc.cleanup = nil
	pc.mu.Unlock()

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	pc.Terminal.FinishProgress()
}
