package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/njritter/ffe/pkg/utils"
)

// ImageHandler 处理监控到的新图片
type ImageHandler interface {
	// IsRecognizedFile 文件是否需要处理
	IsRecognizedFile(filePath string) bool
	// ProcessFile 处理文件，返回是否成功
	ProcessFile(filePath string) bool
}

// FolderMonitor 递归监控文件夹中新增或修改的图片
type FolderMonitor struct {
	watcher      *fsnotify.Watcher
	folderPath   string
	handler      ImageHandler
	debounceTime time.Duration
	pendingFiles map[string]*time.Timer
	mutex        sync.Mutex
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewFolderMonitor 创建新的文件夹监控器
func NewFolderMonitor(folderPath string, handler ImageHandler, debounceTime time.Duration) (*FolderMonitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &FolderMonitor{
		watcher:      w,
		folderPath:   folderPath,
		handler:      handler,
		debounceTime: debounceTime,
		pendingFiles: make(map[string]*time.Timer),
		stopChan:     make(chan struct{}),
	}, nil
}

// Start 开始监控文件夹及其全部子目录
func (m *FolderMonitor) Start() error {
	if err := m.addTree(m.folderPath, false); err != nil {
		return err
	}

	go m.watchLoop()

	utils.Info("开始监控文件夹: %s", m.folderPath)
	return nil
}

// Stop 停止监控，等待正在处理的文件完成
func (m *FolderMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.watcher.Close()

		m.mutex.Lock()
		for path, timer := range m.pendingFiles {
			if timer.Stop() {
				m.wg.Done()
			}
			delete(m.pendingFiles, path)
		}
		m.mutex.Unlock()

		m.wg.Wait()
		utils.Info("停止监控文件夹: %s", m.folderPath)
	})
}

// addTree 监控目录树；scan 为 true 时同时处理其中已有的图片
func (m *FolderMonitor) addTree(root string, scan bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			utils.Warn("无法访问 %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if err := m.watcher.Add(path); err != nil {
				return fmt.Errorf("添加监控文件夹 %s 失败: %w", path, err)
			}
			return nil
		}
		if scan {
			m.schedule(path)
		}
		return nil
	})
}

// watchLoop 监控循环
func (m *FolderMonitor) watchLoop() {
	for {
		select {
		case <-m.stopChan:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFileEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			utils.Error("监控文件夹时出错: %v", err)
		}
	}
}

// 处理文件事件
func (m *FolderMonitor) handleFileEvent(event fsnotify.Event) {
	// 只处理创建和修改事件
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := m.addTree(event.Name, true); err != nil {
				utils.Warn("监控新目录失败: %v", err)
			}
		}
		return
	}

	m.schedule(event.Name)
}

// schedule 文件在 debounceTime 内没有新的变化才交给处理器
func (m *FolderMonitor) schedule(filePath string) {
	if !m.handler.IsRecognizedFile(filePath) {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	select {
	case <-m.stopChan:
		return
	default:
	}

	if timer, exists := m.pendingFiles[filePath]; exists {
		if timer.Stop() {
			m.wg.Done()
		}
	}

	m.wg.Add(1)
	m.pendingFiles[filePath] = time.AfterFunc(m.debounceTime, func() {
		defer m.wg.Done()
		m.processFile(filePath)
	})

	utils.Debug("检测到文件变化: %s", filePath)
}

// 处理文件
func (m *FolderMonitor) processFile(filePath string) {
	m.mutex.Lock()
	delete(m.pendingFiles, filePath)
	m.mutex.Unlock()

	// 检查文件是否仍然存在且仍需处理
	if _, err := os.Stat(filePath); err != nil || !m.handler.IsRecognizedFile(filePath) {
		return
	}

	utils.Info("准备处理文件: %s", filePath)
	m.handler.ProcessFile(filePath)
}

// StartFolderMonitoring 开始监控文件夹，返回停止函数
func StartFolderMonitoring(folderPath string, handler ImageHandler, debounceTime time.Duration) (func(), error) {
	monitor, err := NewFolderMonitor(folderPath, handler, debounceTime)
	if err != nil {
		return nil, err
	}

	if err := monitor.Start(); err != nil {
		monitor.watcher.Close()
		return nil, err
	}

	return monitor.Stop, nil
}
