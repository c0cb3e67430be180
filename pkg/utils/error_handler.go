package utils

import (
	"fmt"
	"sort"
	"sync"
)

// TaskError 单个图片处理失败的原因
type TaskError struct {
	Stage string // 失败阶段 (decode, recognize, write, panic)
	Path  string
	Cause error
}

// Error 实现error接口
func (e *TaskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s", e.Stage, e.Path, e.Cause.Error())
	}
	return fmt.Sprintf("%s %s", e.Stage, e.Path)
}

// Unwrap 支持error chain
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError 创建一个新的TaskError
func NewTaskError(stage, path string, cause error) error {
	return &TaskError{
		Stage: stage,
		Path:  path,
		Cause: cause,
	}
}

// ErrorStats 按阶段统计错误，可被多个协程同时使用
type ErrorStats struct {
	mu    sync.Mutex
	stats map[string]map[string]int // 阶段 -> 错误信息 -> 计数
}

// NewErrorStats 创建错误统计
func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		stats: make(map[string]map[string]int),
	}
}

// Add 记录一个错误
func (s *ErrorStats) Add(stage string, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if te, ok := err.(*TaskError); ok && te.Cause != nil {
		msg = te.Cause.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats[stage] == nil {
		s.stats[stage] = make(map[string]int)
	}
	s.stats[stage][msg]++
}

// Count 某个阶段的错误总数
func (s *ErrorStats) Count(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.stats[stage] {
		total += n
	}
	return total
}

// Snapshot 获取错误统计信息的副本
func (s *ErrorStats) Snapshot() map[string]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]int, len(s.stats))
	for stage, errs := range s.stats {
		out[stage] = make(map[string]int, len(errs))
		for msg, n := range errs {
			out[stage][msg] = n
		}
	}
	return out
}

// PrintErrorStats 打印错误统计信息
func (s *ErrorStats) PrintErrorStats() {
	snapshot := s.Snapshot()
	if len(snapshot) == 0 {
		Debug("没有错误记录")
		return
	}

	stages := make([]string, 0, len(snapshot))
	for stage := range snapshot {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	Info("错误统计:")
	for _, stage := range stages {
		Info("阶段: %s", stage)
		for msg, count := range snapshot[stage] {
			Info("  - %s: %d次", msg, count)
		}
	}
}
