package ui

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar 进度条结构，只负责生成文本，输出交给 TerminalManager
type ProgressBar struct {
	Total      int       // 总步数
	Current    int       // 当前进度
	Prefix     string    // 前缀
	Suffix     string    // 后缀
	Unit       string    // 单位
	Width      int       // 进度条宽度
	FillChar   string    // 填充字符
	EmptyChar  string    // 空白字符
	StartTime  time.Time // 开始时间
	LastUpdate time.Time // 上次更新时间
}

// NewProgressBar 创建新的进度条
func NewProgressBar(total int, prefix string, unit string) *ProgressBar {
	now := time.Now()
	return &ProgressBar{
		Total:      total,
		Prefix:     prefix,
		Unit:       unit,
		Width:      30,
		FillChar:   "█",
		EmptyChar:  "░",
		StartTime:  now,
		LastUpdate: now,
	}
}

// Update 更新进度
func (p *ProgressBar) Update(current int, suffix string) {
	if current < 0 {
		return
	}
	if current > p.Total {
		current = p.Total
	}

	p.Current = current
	if suffix != "" {
		p.Suffix = suffix
	}
	p.LastUpdate = time.Now()
}

// Increment 增加进度
func (p *ProgressBar) Increment(suffix string) {
	p.Update(p.Current+1, suffix)
}

// Done 是否已完成
func (p *ProgressBar) Done() bool {
	return p.Current >= p.Total
}

func (p *ProgressBar) percent() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Current) / float64(p.Total)
}

// String 返回进度条的字符串表示
func (p *ProgressBar) String() string {
	percent := p.percent()
	filled := int(percent * float64(p.Width))
	if filled > p.Width {
		filled = p.Width
	}
	bar := strings.Repeat(p.FillChar, filled) + strings.Repeat(p.EmptyChar, p.Width-filled)

	elapsed := p.LastUpdate.Sub(p.StartTime)
	var remaining time.Duration
	if p.Current > 0 && percent < 1 {
		remaining = time.Duration(float64(elapsed) / percent * (1 - percent))
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.Current) / elapsed.Seconds()
	}

	line := fmt.Sprintf("%s [%s] %3.0f%% | %d/%d | %s<%s, %.2f%s/s",
		p.Prefix, bar, percent*100, p.Current, p.Total,
		formatDuration(elapsed), formatDuration(remaining), rate, p.Unit)
	if p.Suffix != "" {
		line += " | " + p.Suffix
	}
	return line
}

// 格式化持续时间为 MM:SS 格式
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
