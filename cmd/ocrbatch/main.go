package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/njritter/ffe/internal/controller"
	"github.com/njritter/ffe/internal/ui"
	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/ocr"
	"github.com/njritter/ffe/pkg/utils"
)

var (
	configFile = flag.String("config", "", "配置文件路径 (.json/.yaml)")
	envFile    = flag.String("env", ".env", "环境变量文件路径")
	rootDir    = flag.String("root", "", "图片根目录")
	modelName  = flag.String("model", "", "模型名称")
	provider   = flag.String("provider", "", "识别引擎 (gemini, openai, tesseract)")
	baseURL    = flag.String("base-url", "", "接口地址")
	workers    = flag.Int("workers", 0, "并发工作协程数")
	mode       = flag.String("mode", "", "处理模式 (sequential, concurrent)")
	logLevel   = flag.String("log-level", "", "日志级别 (VERBOSE, INFO, WARN, ERROR)")
	logFile    = flag.String("log-file", "", "日志文件路径")
	watchMode  = flag.Bool("watch", false, "批处理结束后继续监控新图片")
	noProgress = flag.Bool("no-progress", false, "不显示进度条")
	reprocess  = flag.Bool("reprocess", false, "重新识别已有结果的图片")
	saveConfig = flag.String("save-config", "", "将最终配置保存到文件")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	printWelcome()

	config, err := loadConfig()
	if err != nil {
		printConfigError(err)
		return
	}

	if err := utils.InitLogger(config.LogLevel, config.LogFile); err != nil {
		color.Yellow("警告: 初始化日志失败: %v", err)
	}
	config.PrintConfig()

	if *saveConfig != "" {
		if err := config.SaveToFile(*saveConfig); err != nil {
			color.Yellow("警告: 保存配置失败: %v", err)
		}
	}

	ctx := context.Background()
	engine, err := ocr.NewEngine(ctx, config)
	if err != nil {
		color.Red("创建识别引擎失败: %v", err)
		return
	}

	pc := controller.NewProcessorController(config, engine, os.Stdout)
	pc.SetTerminal(ui.GetTerminalManager())

	summary, err := pc.Run(ctx)
	if err != nil {
		printConfigError(err)
		return
	}
	pc.PrintSummary(summary)

	if config.WatchMode {
		if err := pc.StartWatchMode(ctx); err != nil {
			color.Red("启动监控失败: %v", err)
		}
	}
}

func printWelcome() {
	fmt.Println()
	color.Cyan("================================")
	color.Cyan("     图片文字识别 - 批处理工具    ")
	color.Cyan("================================")
	fmt.Println()
}

// 配置错误只打印提示，不以非零状态退出
func printConfigError(err error) {
	var cfgErr *models.ConfigValidationError
	if errors.As(err, &cfgErr) {
		color.Red("配置错误: %s", cfgErr.Message)
		return
	}
	color.Red("错误: %v", err)
}

// loadConfig 依次应用默认值、配置文件、环境变量和命令行参数
func loadConfig() (*models.Config, error) {
	config := models.NewDefaultConfig()

	if *configFile != "" {
		if err := config.LoadFromFile(*configFile); err != nil {
			return nil, err
		}
	}

	if err := config.LoadFromEnv(*envFile); err != nil {
		return nil, err
	}

	// 只覆盖显式设置的参数
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			config.RootDirectory = *rootDir
		case "model":
			config.ModelName = *modelName
		case "provider":
			config.Provider = *provider
		case "base-url":
			config.BaseURL = *baseURL
		case "workers":
			config.MaxWorkers = *workers
		case "mode":
			config.Mode = *mode
		case "log-level":
			config.LogLevel = *logLevel
		case "log-file":
			config.LogFile = *logFile
		case "watch":
			config.WatchMode = *watchMode
		case "no-progress":
			config.ShowProgress = !*noProgress
		case "reprocess":
			config.SkipExisting = !*reprocess
		}
	})

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
