// Package voice 读取 voices.npz 中的音色向量
package voice

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/sbinet/npyio"

	speech "github.com/getcharzp/go-kittentts"
)

// StyleDim 音色向量维度
const StyleDim = 256

// voiceNames 模型支持的音色，顺序固定
var voiceNames = []string{
	"expr-voice-2-m", "expr-voice-2-f",
	"expr-voice-3-m", "expr-voice-3-f",
	"expr-voice-4-m", "expr-voice-4-f",
	"expr-voice-5-m", "expr-voice-5-f",
}

// IsKnown 判断是否为支持的音色
func IsKnown(name string) bool {
	for _, n := range voiceNames {
		if n == name {
			return true
		}
	}
	return false
}

// Bank 音色库，加载后只读
type Bank struct {
	styles map[string][]float32
}

// Load 从 npz 文件加载音色库
func Load(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, speech.NewError(speech.KindAssetCorrupt, path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, speech.NewError(speech.KindAssetCorrupt, path, err)
	}
	bank, err := LoadReader(f, st.Size())
	if err != nil {
		return nil, speech.NewError(speech.KindAssetCorrupt, path, err)
	}
	return bank, nil
}

// LoadReader 从 npz 数据加载音色库
//
// 缺失或无法解析的音色使用全零向量代替
func LoadReader(r io.ReaderAt, size int64) (*Bank, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("打开 npz 失败: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[strings.TrimSuffix(f.Name, ".npy")] = f
	}

	log := speech.Log("voice")
	b := &Bank{styles: make(map[string][]float32, len(voiceNames))}
	for _, name := range voiceNames {
		f, ok := files[name]
		if !ok {
			log.WithField("voice", name).Warn("音色不存在，使用全零向量")
			b.styles[name] = make([]float32, StyleDim)
			continue
		}
		style, err := readStyle(f)
		if err != nil {
			log.WithField("voice", name).Warnf("音色解析失败，使用全零向量: %v", err)
			b.styles[name] = make([]float32, StyleDim)
			continue
		}
		log.WithField("voice", name).Debug("音色加载完成")
		b.styles[name] = style
	}
	return b, nil
}

// readStyle 读取单个 npy，多行数组取第一行
func readStyle(f *zip.File) ([]float32, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	var data []float32
	if err := npyio.Read(bytes.NewReader(raw), &data); err != nil {
		var data64 []float64
		if err64 := npyio.Read(bytes.NewReader(raw), &data64); err64 != nil {
			return nil, err
		}
		data = make([]float32, len(data64))
		for i, v := range data64 {
			data[i] = float32(v)
		}
	}

	if len(data) == 0 || len(data)%StyleDim != 0 {
		return nil, fmt.Errorf("向量长度 %d 与 %d 不匹配", len(data), StyleDim)
	}
	return data[:StyleDim:StyleDim], nil
}

// Get 获取音色向量，返回的切片不可修改
func (b *Bank) Get(name string) ([]float32, error) {
	style, ok := b.styles[name]
	if !ok {
		return nil, speech.NewError(speech.KindUnknownVoice, name, nil)
	}
	return style, nil
}

// Names 返回支持的音色
func (b *Bank) Names() []string {
	return append([]string(nil), voiceNames...)
}
