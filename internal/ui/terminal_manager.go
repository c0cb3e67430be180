package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// TerminalManager 管理终端输出，确保进度条和消息不会混乱
type TerminalManager struct {
	mu           sync.Mutex
	out          io.Writer
	progressLine string // 当前显示的进度条，打印消息后重绘
	colorize     bool
}

var (
	// 全局终端管理器实例
	globalTerminalManager *TerminalManager
	once                  sync.Once
)

// GetTerminalManager 获取全局终端管理器实例
func GetTerminalManager() *TerminalManager {
	once.Do(func() {
		globalTerminalManager = NewTerminalManager(os.Stdout)
		globalTerminalManager.colorize = !color.NoColor
	})
	return globalTerminalManager
}

// NewTerminalManager 创建写入指定输出的终端管理器
func NewTerminalManager(out io.Writer) *TerminalManager {
	return &TerminalManager{out: out}
}

// PrintMsg 在进度条上方打印一行消息
func (tm *TerminalManager) PrintMsg(format string, args ...interface{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.clearLine()
	fmt.Fprintf(tm.out, format+"\n", args...)
	tm.redraw()
}

// UpdateProgress 更新进度显示
func (tm *TerminalManager) UpdateProgress(bar *ProgressBar) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.progressLine = bar.String()
	tm.clearLine()
	tm.redraw()
}

// FinishProgress 结束进度显示并换行
func (tm *TerminalManager) FinishProgress() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.progressLine != "" {
		fmt.Fprintln(tm.out)
		tm.progressLine = ""
	}
}

func (tm *TerminalManager) clearLine() {
	if tm.progressLine != "" {
		fmt.Fprint(tm.out, "\033[2K\r")
	}
}

func (tm *TerminalManager) redraw() {
	if tm.progressLine == "" {
		return
	}
	if tm.colorize {
		fmt.Fprint(tm.out, color.CyanString(tm.progressLine))
		return
	}
	// 没有参数时直接打印，避免%造成的问题
	fmt.Fprint(tm.out, tm.progressLine)
}
