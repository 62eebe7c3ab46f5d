// Package assets 检查并下载模型资源文件
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	speech "github.com/getcharzp/go-kittentts"
)

const (
	ConfigFile = "config.json"
	ModelFile  = "kitten_tts_nano_v0_1.onnx"
	VoicesFile = "voices.npz"

	// DefaultBaseURL 官方模型仓库
	DefaultBaseURL = "https://huggingface.co/KittenML/kitten-tts-nano-0.1/resolve/main"
)

// Files 模型目录下必需的文件
var Files = []string{ConfigFile, ModelFile, VoicesFile}

// Paths 资源文件的本地路径
type Paths struct {
	Dir    string
	Config string
	Model  string
	Voices string
}

// PathsIn 返回目录下各资源文件路径
func PathsIn(dir string) Paths {
	return Paths{
		Dir:    dir,
		Config: filepath.Join(dir, ConfigFile),
		Model:  filepath.Join(dir, ModelFile),
		Voices: filepath.Join(dir, VoicesFile),
	}
}

// Provisioner 确保模型目录中资源齐全
type Provisioner struct {
	Dir string
	// Sources 按顺序尝试，为空时使用 DefaultBaseURL
	Sources []Source
}

// Ensure 下载缺失的文件，已存在的文件不做处理
//
// 多个文件并发下载；每个文件先写入同目录临时文件再重命名
func (p *Provisioner) Ensure(ctx context.Context) (Paths, error) {
	paths := PathsIn(p.Dir)
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return paths, speech.NewError(speech.KindIO, p.Dir, err)
	}

	sources := p.Sources
	if len(sources) == 0 {
		sources = []Source{NewHTTPSource("")}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range Files {
		dst := filepath.Join(p.Dir, name)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		g.Go(func() error {
			return fetchAny(ctx, sources, name, dst)
		})
	}
	return paths, g.Wait()
}

// fetchAny 依次尝试各来源，全部失败时返回最后一个来源的错误
func fetchAny(ctx context.Context, sources []Source, name, dst string) error {
	var lastErr error
	for _, src := range sources {
		err := fetchFile(ctx, src, name, dst)
		if err == nil {
			return nil
		}
		speech.Log("assets").WithField("url", src.Location(name)).Warnf("下载失败: %v", err)
		lastErr = speech.NewError(speech.KindAssetUnavailable, src.Location(name), err)
		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func fetchFile(ctx context.Context, src Source, name, dst string) error {
	log := speech.Log("assets").WithField("url", src.Location(name)).WithField("path", dst)
	log.Info("开始下载")

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+name+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := src.Fetch(ctx, name, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("下载内容为空")
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	log.WithField("bytes", n).Info("下载完成")
	return nil
}

// ModelConfig config.json 内容
//
// 文件对推理不透明，只提取模型名用于日志，原始 JSON 完整保留
type ModelConfig struct {
	Name string
	Raw  json.RawMessage
}

// LoadModelConfig 读取并校验 config.json，必须是 JSON 对象
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, speech.NewError(speech.KindAssetCorrupt, path, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, speech.NewError(speech.KindAssetCorrupt, path, fmt.Errorf("解析失败: %w", err))
	}
	name, _ := fields["name"].(string)
	return &ModelConfig{Name: name, Raw: json.RawMessage(data)}, nil
}
