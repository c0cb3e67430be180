package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// 识别服务名称
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderTesseract = "tesseract"
)

// 处理模式
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// Config 表示应用程序的配置
type Config struct {
	APIKey        string `json:"api_key" yaml:"api_key"`               // 识别服务的API密钥
	RootDirectory string `json:"root_directory" yaml:"root_directory"` // 待扫描的根目录
	ModelName     string `json:"model_name" yaml:"model_name"`         // 视觉模型名称
	MaxWorkers    int    `json:"max_workers" yaml:"max_workers"`       // 并发模式下的工作协程数
	Provider      string `json:"provider" yaml:"provider"`             // 识别服务 (gemini, openai, tesseract)
	BaseURL       string `json:"base_url" yaml:"base_url"`             // 自定义服务地址，空则使用默认值
	Mode          string `json:"mode" yaml:"mode"`                     // 处理模式 (sequential, concurrent)
	SkipExisting  bool   `json:"skip_existing" yaml:"skip_existing"`   // 跳过已有识别结果的图片
	JPEGQuality   int    `json:"jpeg_quality" yaml:"jpeg_quality"`     // TIFF转JPEG时的质量
	ShowProgress  bool   `json:"show_progress" yaml:"show_progress"`   // 显示进度条
	WatchMode     bool   `json:"watch_mode" yaml:"watch_mode"`         // 批处理完成后继续监听新图片
	LogLevel      string `json:"log_level" yaml:"log_level"`           // 日志级别
	LogFile       string `json:"log_file" yaml:"log_file"`             // 日志文件
}

// ConfigValidationError 表示配置验证错误
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("配置验证错误: %s - %s", e.Field, e.Message)
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		MaxWorkers:   5,
		Provider:     ProviderGemini,
		Mode:         ModeConcurrent,
		SkipExisting: true,
		JPEGQuality:  95,
		ShowProgress: true,
		WatchMode:    false,
		LogLevel:     "INFO",
	}
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderTesseract:
	default:
		return &ConfigValidationError{"Provider", fmt.Sprintf("不支持的识别服务: %q", c.Provider)}
	}

	// 本地识别不需要密钥和模型
	remote := c.Provider != ProviderTesseract

	if remote && c.APIKey == "" {
		return &ConfigValidationError{"APIKey", "未设置 GEMINI_API_KEY"}
	}

	if c.RootDirectory == "" {
		return &ConfigValidationError{"RootDirectory", "未设置 ROOT_DIRECTORY"}
	}

	if remote && c.ModelName == "" {
		return &ConfigValidationError{"ModelName", "未设置 MODEL_NAME"}
	}

	info, err := os.Stat(c.RootDirectory)
	if err != nil {
		return &ConfigValidationError{"RootDirectory", fmt.Sprintf("目录不可访问: %v", err)}
	}
	if !info.IsDir() {
		return &ConfigValidationError{"RootDirectory", "不是目录: " + c.RootDirectory}
	}

	if c.MaxWorkers < 1 || c.MaxWorkers > 64 {
		return &ConfigValidationError{"MaxWorkers", "必须在1-64之间"}
	}

	if c.Mode != ModeSequential && c.Mode != ModeConcurrent {
		return &ConfigValidationError{"Mode", fmt.Sprintf("不支持的处理模式: %q", c.Mode)}
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return &ConfigValidationError{"JPEGQuality", "必须在1-100之间"}
	}

	return nil
}

// LoadFromFile 从文件加载配置，按扩展名选择 JSON 或 YAML
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("读取配置文件失败: %v", err)
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		logrus.Errorf("解析配置文件失败: %v", err)
		return fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	return nil
}

// LoadFromEnv 读取 .env 文件和环境变量，已设置的变量覆盖当前配置
func (c *Config) LoadFromEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载环境文件 %s 失败: %w", envFile, err)
		}
	}

	if v := firstEnv("GEMINI_API_KEY", "OCR_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("ROOT_DIRECTORY"); v != "" {
		c.RootDirectory = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		c.ModelName = v
	}
	if v := os.Getenv("OCR_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("OCR_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("OCR_MODE"); v != "" {
		c.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.LogFile = v
	}

	var err error
	if c.MaxWorkers, err = envInt("MAX_WORKERS", c.MaxWorkers); err != nil {
		return err
	}
	if c.JPEGQuality, err = envInt("JPEG_QUALITY", c.JPEGQuality); err != nil {
		return err
	}
	if c.SkipExisting, err = envBool("SKIP_EXISTING", c.SkipExisting); err != nil {
		return err
	}
	if c.WatchMode, err = envBool("WATCH_MODE", c.WatchMode); err != nil {
		return err
	}

	return nil
}

// SaveToFile 保存配置到文件
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Errorf("创建目录失败: %v", err)
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return err
	}

	// 文件中包含密钥
	if err := os.WriteFile(path, data, 0600); err != nil {
		logrus.Errorf("写入配置文件失败: %v", err)
		return err
	}

	return nil
}

// Masked 返回隐藏密钥后的配置副本
func (c *Config) Masked() Config {
	masked := *c
	if len(masked.APIKey) > 4 {
		masked.APIKey = strings.Repeat("*", len(masked.APIKey)-4) + masked.APIKey[len(masked.APIKey)-4:]
	} else if masked.APIKey != "" {
		masked.APIKey = "****"
	}
	return masked
}

// PrintConfig 打印当前配置
func (c *Config) PrintConfig() {
	bytes, err := json.MarshalIndent(c.Masked(), "", "  ")
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return
	}
	logrus.Debugf("当前配置:\n%s", string(bytes))
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultVal, &ConfigValidationError{key, "不是有效的整数: " + v}
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultVal, &ConfigValidationError{key, "不是有效的布尔值: " + v}
	}
	return b, nil
}
