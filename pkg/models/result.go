package models

import "time"

// 失败阶段
const (
	StageDecode    = "decode"
	StageRecognize = "recognize"
	StageWrite     = "write"
	StagePanic     = "panic"
)

// Task 表示一个待识别的图片
type Task struct {
	SourcePath string `json:"source_path"` // 图片路径
	OutputPath string `json:"output_path"` // 识别结果文件路径
}

// Result 单个图片的处理结果，Text 与 Err 只有一个有效
type Result struct {
	SourcePath string        `json:"source_path"`
	OutputPath string        `json:"output_path"`
	Text       string        `json:"-"`
	Err        error         `json:"-"`
	Stage      string        `json:"stage,omitempty"` // 失败阶段
	Saved      bool          `json:"saved"`           // 结果是否已写入文件
	Elapsed    time.Duration `json:"elapsed"`
}

// OK 识别成功并已保存
func (r Result) OK() bool {
	return r.Err == nil && r.Saved
}

// RunSummary 一次运行的统计信息
type RunSummary struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Record 累加一个结果
func (s *RunSummary) Record(r Result) {
	if r.OK() {
		s.Successful++
	} else {
		s.Failed++
	}
}

// AveragePerImage 每张图片的平均耗时
func (s RunSummary) AveragePerImage() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Total)
}

// AveragePerSuccess 每张成功图片的平均耗时
func (s RunSummary) AveragePerSuccess() time.Duration {
	if s.Successful == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Successful)
}
