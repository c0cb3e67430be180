package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njritter/ffe/pkg/models"
)

// 创建测试目录和测试文件
func setupTestDirectory(t *testing.T, files ...string) string {
	root := t.TempDir()
	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("test content"), 0644))
	}
	return root
}

func relPaths(t *testing.T, root string, tasks []models.Task) []string {
	var out []string
	for _, task := range tasks {
		rel, err := filepath.Rel(root, task.SourcePath)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestScanMatchesSupportedExtensions(t *testing.T) {
	root := setupTestDirectory(t, "a.JPG", "b.png", "c.tiff", "d/e.jpg", "d/f.Jpeg", "g.tif", "notes.txt")

	tasks, err := NewImageScanner(false).Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.JPG", "c.tiff", "d/e.jpg", "d/f.Jpeg", "g.tif"}, relPaths(t, root, tasks))
	for _, task := range tasks {
		assert.Equal(t, task.SourcePath[:len(task.SourcePath)-len(filepath.Ext(task.SourcePath))]+"_ocr.txt", task.OutputPath)
	}
}

func TestScanSkipsExistingOutputs(t *testing.T) {
	root := setupTestDirectory(t, "a.JPG", "c.tiff", "c_ocr.txt", "d/e.jpg")

	tasks, err := NewImageScanner(true).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "d/e.jpg"}, relPaths(t, root, tasks))

	// 关闭跳过后全部返回
	tasks, err = NewImageScanner(false).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "c.tiff", "d/e.jpg"}, relPaths(t, root, tasks))
}

func TestScanEmptyDirectory(t *testing.T) {
	tasks, err := NewImageScanner(true).Scan(t.TempDir())
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := NewImageScanner(true).Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	var cfgErr *models.ConfigValidationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "RootDirectory", cfgErr.Field)
}

func TestScanIgnoresDirectoriesNamedLikeImages(t *testing.T) {
	root := setupTestDirectory(t, "album.jpg/inner.png", "x.jpeg")

	tasks, err := NewImageScanner(false).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jpeg"}, relPaths(t, root, tasks))
}

func TestWalkStopsEarly(t *testing.T) {
	root := setupTestDirectory(t, "1.jpg", "2.jpg", "3.jpg")

	seen := 0
	err := NewImageScanner(false).Walk(root, func(models.Task) error {
		seen++
		return ErrStopWalk
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestFilterNewFiles(t *testing.T) {
	root := setupTestDirectory(t, "a.jpg", "b.jpg", "b_ocr.txt")
	s := NewImageScanner(false)

	tasks, err := s.Scan(root)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	newTasks := s.FilterNewFiles(tasks)
	assert.Equal(t, []string{"a.jpg"}, relPaths(t, root, newTasks))
}
