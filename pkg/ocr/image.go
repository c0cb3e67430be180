package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// 图片MIME类型
const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypeTIFF = "image/tiff"
)

// DefaultJPEGQuality TIFF 转码时的默认质量
const DefaultJPEGQuality = 95

// Image 准备发送给识别服务的图片
type Image struct {
	Path     string
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// LoadImage 读取图片；TIFF 解码后统一转成 RGB 再编码为内存中的 JPEG
func LoadImage(path string, quality int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片失败: %w", err)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return convertTIFF(path, data, quality)
	case ".jpg", ".jpeg":
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("解析JPEG失败: %w", err)
		}
		return &Image{
			Path:     path,
			Data:     data,
			MIMEType: MIMETypeJPEG,
			Width:    cfg.Width,
			Height:   cfg.Height,
		}, nil
	default:
		return nil, fmt.Errorf("不支持的图片格式: %s", filepath.Ext(path))
	}
}

func convertTIFF(path string, data []byte, quality int) (*Image, error) {
	src, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析TIFF失败: %w", err)
	}

	rgb := toRGB(src)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("转换为JPEG失败: %w", err)
	}

	b := rgb.Bounds()
	return &Image{
		Path:     path,
		Data:     buf.Bytes(),
		MIMEType: MIMETypeJPEG,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// toRGB 把任意颜色模型（CMYK、灰度、调色板、带透明通道）铺到白底上
func toRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
