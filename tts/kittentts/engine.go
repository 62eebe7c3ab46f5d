// Package kittentts KittenTTS nano 离线语音合成
//
// 流程: 语种识别 -> espeak G2P -> 符号表编码 -> ONNX 推理 -> 静音裁剪 -> WAV
package kittentts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/up-zero/gotool/convertutil"
	"github.com/up-zero/gotool/mediautil"

	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/assets"
	"github.com/getcharzp/go-kittentts/audio"
	"github.com/getcharzp/go-kittentts/cache"
	"github.com/getcharzp/go-kittentts/text/phonemize"
	"github.com/getcharzp/go-kittentts/voice"
)

// Engine 封装了 KittenTTS 的 ONNX 会话、音色库与 G2P
//
// 可并发调用，只有推理阶段是串行的
type Engine struct {
	inferencer  *Inferencer
	bank        *voice.Bank
	phonemizer  *phonemize.Phonemizer
	cache       *cache.PhonemeCache
	onnxConfig  *speech.OnnxConfig
	modelConfig *assets.ModelConfig
	config      Config
}

// NewEngine 初始化 KittenTTS 引擎
//
// 模型目录中缺失的文件会先下载，ctx 只作用于下载阶段
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.ModelDir == "" {
		return nil, speech.NewError(speech.KindInvalidArgument, "model dir", errors.New("模型目录不能为空"))
	}
	// 下载之前先校验执行后端
	if _, err := speech.ParseProvider(cfg.Provider); err != nil {
		return nil, err
	}

	// 准备资源文件
	provisioner := &assets.Provisioner{Dir: cfg.ModelDir, Sources: assetSources(cfg)}
	paths, err := provisioner.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	modelConfig, err := assets.LoadModelConfig(paths.Config)
	if err != nil {
		return nil, err
	}
	bank, err := voice.Load(paths.Voices)
	if err != nil {
		return nil, err
	}

	// 初始化 ONNX
	onnxConfig := new(speech.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, onnxConfig); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	if err := onnxConfig.New(); err != nil {
		return nil, err
	}
	runner, err := newOrtRunner(paths.Model, onnxConfig.SessionOptions)
	if err != nil {
		onnxConfig.Destroy()
		return nil, speech.NewError(speech.KindAssetCorrupt, paths.Model, err)
	}

	// G2P 后端不可用时不影响构建，合成时走回退路径
	backend, err := phonemize.NewBackend(phonemize.BackendConfig{
		Kind:     cfg.EspeakBackend,
		Path:     cfg.EspeakPath,
		LibDir:   cfg.EspeakLibDir,
		DataPath: cfg.EspeakDataPath,
	})
	if err != nil {
		speech.Log("kittentts").Warnf("G2P 后端不可用，将直接切分原文: %v", err)
		backend = nil
	}

	phonemeCache, err := openPhonemeCache(cfg.PhonemeCacheDir, backendName(backend))
	if err != nil {
		_ = runner.Destroy()
		onnxConfig.Destroy()
		return nil, err
	}

	e := newEngine(cfg, runner, bank, backend, phonemeCache)
	e.onnxConfig = onnxConfig
	e.modelConfig = modelConfig
	speech.Log("kittentts").WithField("provider", onnxConfig.ActiveProvider).
		WithField("model", modelConfig.Name).Info("引擎初始化完成")
	return e, nil
}

// newEngine 组装引擎，测试中可传入任意 Runner 与 Backend
func newEngine(cfg Config, runner Runner, bank *voice.Bank, backend phonemize.Backend, phonemeCache *cache.PhonemeCache) *Engine {
	var opts []phonemize.Option
	if phonemeCache != nil {
		opts = append(opts, phonemize.WithCache(phonemeCache))
	}
	return &Engine{
		inferencer: NewInferencer(runner, assets.ModelFile),
		bank:       bank,
		phonemizer: phonemize.New(backend, opts...),
		cache:      phonemeCache,
		config:     cfg,
	}
}

// Voices 返回支持的音色
func (e *Engine) Voices() []string {
	return e.bank.Names()
}

// SampleRate 输出采样率
func (e *Engine) SampleRate() int {
	return SampleRate
}

// ActiveProvider 实际使用的执行后端
func (e *Engine) ActiveProvider() speech.Provider {
	if e.onnxConfig == nil {
		return speech.ProviderCPU
	}
	return e.onnxConfig.ActiveProvider
}

// Generate 将文本转换为语音数据 (float32 PCM, 24kHz 单声道)
//
// # Params:
//
//	text: 需要转换的文本
//	voiceName: 音色，见 Voices
//	speed: 语速调节,数值越大越快,1.0为正常语速
func (e *Engine) Generate(text, voiceName string, speed float32) ([]float32, error) {
	// 参数校验先于任何模型调用
	if strings.TrimSpace(text) == "" {
		return nil, speech.NewError(speech.KindInvalidArgument, "text", errors.New("文本为空"))
	}
	if !voice.IsKnown(voiceName) {
		return nil, speech.NewError(speech.KindUnknownVoice, voiceName, nil)
	}
	if !(speed > 0) || math.IsInf(float64(speed), 0) {
		return nil, speech.NewError(speech.KindInvalidArgument, fmt.Sprintf("speed %v", speed), errors.New("语速必须为正数"))
	}

	style, err := e.bank.Get(voiceName)
	if err != nil {
		return nil, err
	}

	inputIDs := e.textToIds(text)
	pcmData, err := e.inferencer.Infer([][]int64{inputIDs}, style, speed)
	if err != nil {
		return nil, err
	}
	return audio.ApplyTrim(e.config.Trim, pcmData, SampleRate), nil
}

// GenerateToWav 将文本转换为 WAV 格式的字节流
func (e *Engine) GenerateToWav(text, voiceName string, speed float32, opts ...WavOptions) ([]byte, error) {
	o := WavOptions{Format: e.config.WavFormat}
	if len(opts) > 0 {
		o = opts[0]
	}

	pcmData, err := e.Generate(text, voiceName, speed)
	if err != nil {
		return nil, err
	}
	if o.SampleRate == 0 || o.SampleRate == SampleRate {
		return audio.WavBytes(pcmData, SampleRate, o.Format)
	}

	// 重采样只支持 16 位 PCM
	wavBytes, err := audio.WavBytes(pcmData, SampleRate, audio.WavInt16)
	if err != nil {
		return nil, err
	}
	out, err := mediautil.ReformatWavBytes(wavBytes, o.SampleRate, 1, 16)
	if err != nil {
		return nil, speech.NewError(speech.KindInvalidArgument, fmt.Sprintf("sample rate %d", o.SampleRate), err)
	}
	return out, nil
}

// GenerateToFile 合成并写入 WAV 文件
func (e *Engine) GenerateToFile(text, voiceName string, speed float32, path string) error {
	pcmData, err := e.Generate(text, voiceName, speed)
	if err != nil {
		return err
	}
	if err := audio.WriteWavFile(path, pcmData, SampleRate, e.config.WavFormat); err != nil {
		return err
	}
	speech.Log("kittentts").WithField("path", path).Info("音频已保存")
	return nil
}

// Destroy 释放相关资源
func (e *Engine) Destroy() error {
	err := e.inferencer.Destroy()
	if e.onnxConfig != nil {
		e.onnxConfig.Destroy()
	}
	if e.cache != nil {
		if cerr := e.cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
