package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/output"
	"github.com/njritter/ffe/pkg/utils"
)

// ErrStopWalk 由回调返回时提前结束遍历，Walk 不把它当作错误
var ErrStopWalk = errors.New("stop walk")

// ImageScanner 递归扫描目录中的图片文件
type ImageScanner struct {
	Extensions   []string
	SkipExisting bool // 跳过已有识别结果的图片
}

// NewImageScanner 创建新的图片扫描器
func NewImageScanner(skipExisting bool) *ImageScanner {
	return &ImageScanner{
		Extensions:   []string{".jpg", ".jpeg", ".tif", ".tiff"},
		SkipExisting: skipExisting,
	}
}

// IsSupported 扩展名（不区分大小写）是否在支持列表中
func (s *ImageScanner) IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range s.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Walk 逐个产出符合条件的任务，顺序与文件系统遍历顺序一致
func (s *ImageScanner) Walk(root string, fn func(models.Task) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return &models.ConfigValidationError{Field: "RootDirectory", Message: err.Error()}
	}
	if !info.IsDir() {
		return &models.ConfigValidationError{Field: "RootDirectory", Message: "不是目录: " + root}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// 无法读取的子目录跳过，不影响其余部分
			utils.Warn("无法访问 %s: %v", path, err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.IsSupported(path) {
			return nil
		}

		task := models.Task{
			SourcePath: path,
			OutputPath: output.DeriveOutputPath(path),
		}
		if s.SkipExisting && utils.CheckFileExists(task.OutputPath) {
			utils.Debug("已有识别结果，跳过: %s", path)
			return nil
		}
		return fn(task)
	})
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

// Scan 扫描目录并返回全部任务
func (s *ImageScanner) Scan(root string) ([]models.Task, error) {
	var tasks []models.Task

	utils.Info("开始扫描目录: %s", root)
	err := s.Walk(root, func(task models.Task) error {
		tasks = append(tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Info("扫描完成，共找到 %d 个待处理图片", len(tasks))
	return tasks, nil
}

// FilterNewFiles 过滤掉已有识别结果的任务
func (s *ImageScanner) FilterNewFiles(tasks []models.Task) []models.Task {
	var newTasks []models.Task
	for _, task := range tasks {
		if !utils.CheckFileExists(task.OutputPath) {
			newTasks = append(newTasks, task)
		}
	}
	return newTasks
}
