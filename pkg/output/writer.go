package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/njritter/ffe/pkg/utils"
)

// OutputSuffix 识别结果文件名后缀
const OutputSuffix = "_ocr.txt"

// DeriveOutputPath 去掉图片扩展名并追加后缀，如 a/b.jpeg -> a/b_ocr.txt
func DeriveOutputPath(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + OutputSuffix
}

// Writer 负责把识别文本写到图片旁边
type Writer struct {
	Perm os.FileMode
}

// NewWriter 创建结果写入器
func NewWriter() *Writer {
	return &Writer{Perm: 0644}
}

// Save 保存识别结果，text 为空时不写文件并返回 false
func (w *Writer) Save(sourcePath, text string) (bool, error) {
	if text == "" {
		return false, nil
	}

	outputPath := DeriveOutputPath(sourcePath)
	if err := w.writeFile(outputPath, []byte(text)); err != nil {
		utils.Error("保存识别结果失败 %s: %v", outputPath, err)
		return false, err
	}

	utils.Debug("识别结果已保存到 %s", outputPath)
	return true, nil
}

// 先写同目录临时文件再重命名，结果文件要么不存在要么完整
func (w *Writer) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭文件失败: %w", err)
	}
	if err := os.Chmod(tmpName, w.Perm); err != nil {
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("重命名文件失败: %w", err)
	}
	return nil
}
