package kittentts

import (
	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/assets"
	"github.com/getcharzp/go-kittentts/audio"
)

const (
	// SampleRate 模型输出采样率
	SampleRate = 24000
	// DefaultVoice 默认音色
	DefaultVoice = "expr-voice-5-m"
	// MemoryCache PhonemeCacheDir 取该值时使用进程内缓存
	MemoryCache = ":memory:"
)

// Config 定义 KittenTTS 引擎的配置参数
type Config struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	ModelDir           string // 模型目录，缺失的文件会自动下载

	// 可选参数
	Provider          string        // (可选) 执行后端，默认 cpu
	NumThreads        int           // (可选) ONNX 线程数, 默认由CPU核心数决定
	EnableCpuMemArena bool          // (可选) 是否启用内存池
	BaseURL           string        // (可选) 模型下载地址
	Mirror            assets.Source // (可选) 优先尝试的镜像来源

	EspeakBackend  string // (可选) auto, lib, cli
	EspeakPath     string // (可选) espeak-ng 可执行文件
	EspeakLibDir   string // (可选) libespeak-ng 所在目录
	EspeakDataPath string // (可选) espeak-ng-data 上级目录

	PhonemeCacheDir string // (可选) 音素缓存目录，为空不缓存

	Trim      audio.TrimPolicy // (可选) 裁剪策略，默认 adaptive
	WavFormat audio.WavFormat  // (可选) 输出格式，默认 float32
}

// DefaultConfig 返回一套默认的配置
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: speech.DefaultLibraryPath(),
		ModelDir:           "./models",
		Provider:           string(speech.ProviderCPU),
		BaseURL:            assets.DefaultBaseURL,
		EspeakBackend:      "auto",
		Trim:               audio.TrimAdaptive,
		WavFormat:          audio.WavFloat32,
	}
}

// WavOptions WAV 输出参数
type WavOptions struct {
	Format     audio.WavFormat
	SampleRate int // 为 0 或 24000 时不重采样；其它采样率输出 16 位 PCM
}
