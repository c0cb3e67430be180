package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/njritter/ffe/internal/ui"
	"github.com/njritter/ffe/pkg/models"
	"github.com/njritter/ffe/pkg/output"
	"github.com/njritter/ffe/pkg/scanner"
)

// fakeRecognizer 按文件名决定结果
type fakeRecognizer struct {
	fail  map[string]bool
	delay time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight int32
	maxSeen  int32
}

func (f *fakeRecognizer) Process(ctx context.Context, task models.Task) models.Result {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		old := atomic.LoadInt32(&f.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxSeen, old, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, task.SourcePath)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	result := models.Result{SourcePath: task.SourcePath, OutputPath: task.OutputPath}
	if f.fail[filepath.Base(task.SourcePath)] {
		result.Stage = models.StageRecognize
		result.Err = errors.New("remote error")
		return result
	}
	result.Text = "text of " + filepath.Base(task.SourcePath)
	return result
}

// MockRecognizer 用于断言未发生远程调用
type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Process(ctx context.Context, task models.Task) models.Result {
	args := m.Called(ctx, task)
	return args.Get(0).(models.Result)
}

type failingWriter struct{}

func (failingWriter) Save(string, string) (bool, error) {
	return false, errors.New("disk full")
}

type panicRecognizer struct{}

func (panicRecognizer) Process(context.Context, models.Task) models.Result {
	panic("unexpected")
}

func makeImages(t *testing.T, names ...string) string {
	root := t.TempDir()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("img"), 0644))
	}
	return root
}

func TestNewBatchProcessor(t *testing.T) {
	p := NewBatchProcessor(scanner.NewImageScanner(true), &fakeRecognizer{}, output.NewWriter(), 0, nil)

	assert.NotNil(t, p)
	assert.Equal(t, 1, p.MaxConcurrency)
	assert.NotNil(t, p.ErrorStats)
	assert.Nil(t, p.Terminal)
}

func TestRunConcurrentIsolatesFailures(t *testing.T) {
	root := makeImages(t, "1.jpg", "2.jpg", "3.jpg")
	rec := &fakeRecognizer{fail: map[string]bool{"2.jpg": true}}
	p := NewBatchProcessor(scanner.NewImageScanner(true), rec, output.NewWriter(), 3, nil)

	summary, err := p.RunConcurrent(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Positive(t, summary.Elapsed)

	for _, name := range []string{"1", "3"} {
		data, err := os.ReadFile(filepath.Join(root, name+"_ocr.txt"))
		require.NoError(t, err)
		assert.Equal(t, "text of "+name+".jpg", string(data))
	}
	_, err = os.Stat(filepath.Join(root, "2_ocr.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, 1, p.ErrorStats.Count(models.StageRecognize))
}

func TestRunConcurrentZeroFiles(t *testing.T) {
	root := makeImages(t, "notes.txt", "pic.png")
	rec := new(MockRecognizer)
	p := NewBatchProcessor(scanner.NewImageScanner(true), rec, output.NewWriter(), 5, nil)

	summary, err := p.RunConcurrent(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, models.RunSummary{}, summary)
	rec.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestRunConcurrentBoundsInFlight(t *testing.T) {
	var names []string
	for i := 0; i < 12; i++ {
		names = append(names, filepath.Join("d", string(rune('a'+i))+".jpg"))
	}
	root := makeImages(t, names...)
	rec := &fakeRecognizer{delay: 20 * time.Millisecond}
	p := NewBatchProcessor(scanner.NewImageScanner(true), rec, output.NewWriter(), 3, nil)

	summary, err := p.RunConcurrent(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Successful)
	assert.LessOrEqual(t, atomic.LoadInt32(&rec.maxSeen), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&rec.maxSeen), int32(1))
}

func TestRunConcurrentSkipsProcessedFiles(t *testing.T) {
	root := makeImages(t, "a.JPG", "c.tiff", "c_ocr.txt")
	rec := &fakeRecognizer{}
	p := NewBatchProcessor(scanner.NewImageScanner(true), rec, output.NewWriter(), 2, nil)

	summary, err := p.RunConcurrent(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "a.JPG", filepath.Base(rec.calls[0]))
}

func TestRunConcurrentMissingRoot(t *testing.T) {
	p := NewBatchProcessor(scanner.NewImageScanner(true), &fakeRecognizer{}, output.NewWriter(), 2, nil)

	_, err := p.RunConcurrent(context.Background(), filepath.Join(t.TempDir(), "missing"))

	var cfgErr *models.ConfigValidationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunSequentialCallbacks(t *testing.T) {
	root := makeImages(t, "1.jpg", "2.tif", "3.jpeg")
	rec := &fakeRecognizer{fail: map[string]bool{"3.jpeg": true}}

	var starts, finishes int
	callback := func(current, total int, task models.Task, result *models.Result) {
		assert.Equal(t, 0, total)
		assert.NotEmpty(t, task.SourcePath)
		if result == nil {
			starts++
			assert.Equal(t, starts, current)
			return
		}
		finishes++
		assert.Equal(t, finishes, current)
	}
	p := NewBatchProcessor(scanner.NewImageScanner(false), rec, output.NewWriter(), 5, callback)

	summary, err := p.RunSequential(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, finishes)
	assert.Equal(t, models.RunSummary{Total: 3, Successful: 2, Failed: 1, Elapsed: summary.Elapsed}, summary)
	// 一次只处理一个
	assert.Equal(t, int32(1), rec.maxSeen)
}

func TestRunSequentialZeroFiles(t *testing.T) {
	rec := new(MockRecognizer)
	p := NewBatchProcessor(scanner.NewImageScanner(true), rec, output.NewWriter(), 1, nil)

	summary, err := p.RunSequential(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	rec.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestProcessTaskWriteFailure(t *testing.T) {
	root := makeImages(t, "a.jpg")
	p := NewBatchProcessor(scanner.NewImageScanner(true), &fakeRecognizer{}, failingWriter{}, 1, nil)

	result := p.ProcessTask(context.Background(), models.Task{SourcePath: filepath.Join(root, "a.jpg")})

	assert.False(t, result.OK())
	assert.Equal(t, models.StageWrite, result.Stage)
	assert.Contains(t, result.Err.Error(), "disk full")
	assert.Equal(t, 1, p.ErrorStats.Count(models.StageWrite))
}

func TestProcessTaskRecoversPanic(t *testing.T) {
	root := makeImages(t, "a.jpg", "b.jpg")
	p := NewBatchProcessor(scanner.NewImageScanner(true), panicRecognizer{}, output.NewWriter(), 2, nil)

	summary, err := p.RunConcurrent(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, p.ErrorStats.Count(models.StagePanic))
}

func TestProcessTasksDrawsProgress(t *testing.T) {
	root := makeImages(t, "a.jpg", "b.jpg")
	var buf bytes.Buffer
	p := NewBatchProcessor(scanner.NewImageScanner(true), &fakeRecognizer{}, output.NewWriter(), 2, nil)
	p.SetTerminal(ui.NewTerminalManager(&buf))

	summary, err := p.RunConcurrent(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)

	out := buf.String()
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "成功 2 失败 0")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
