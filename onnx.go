package speech

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// OnnxConfig ONNX Runtime 环境与会话参数
//
// 各引擎通过 convertutil.CopyProperties 将自身配置复制到这里
type OnnxConfig struct {
	OnnxRuntimeLibPath string // onnxruntime 动态库路径
	Provider           string // 执行后端，默认为 cpu
	NumThreads         int    // (可选) 线程数，0 由 ONNX Runtime 决定
	EnableCpuMemArena  bool   // (可选) 是否启用内存池

	// New 之后可用
	SessionOptions *ort.SessionOptions
	ActiveProvider Provider
}

// DefaultLibraryPath 返回当前平台下默认的 onnxruntime 动态库路径
//
// 设置环境变量 ONNXRUNTIME_LIB 可覆盖
func DefaultLibraryPath() string {
	if p := os.Getenv("ONNXRUNTIME_LIB"); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./lib/onnxruntime.dll"
	case "darwin":
		return "./lib/libonnxruntime.dylib"
	default:
		return "./lib/libonnxruntime.so"
	}
}

// New 初始化 ONNX Runtime 环境并创建会话参数
//
// 环境在进程内只初始化一次；请求的执行后端不可用时回退到 CPU
func (oc *OnnxConfig) New() error {
	if err := initEnvironment(oc.OnnxRuntimeLibPath); err != nil {
		return err
	}

	requested, err := ParseProvider(oc.Provider)
	if err != nil {
		return err
	}

	opts, err := oc.newSessionOptions()
	if err != nil {
		return err
	}
	if requested == ProviderCPU {
		oc.SessionOptions, oc.ActiveProvider = opts, ProviderCPU
		Log("onnx").Debug("使用 CPU 执行后端")
		return nil
	}

	if err := appendProvider(opts, requested); err != nil {
		Log("onnx").WithField("provider", requested).Warnf("执行后端不可用，回退到 CPU: %v", err)
		_ = opts.Destroy()
		if opts, err = oc.newSessionOptions(); err != nil {
			return err
		}
		oc.SessionOptions, oc.ActiveProvider = opts, ProviderCPU
		return nil
	}

	Log("onnx").WithField("provider", requested).Info("已启用执行后端")
	oc.SessionOptions, oc.ActiveProvider = opts, requested
	return nil
}

// Destroy 释放会话参数
func (oc *OnnxConfig) Destroy() {
	if oc.SessionOptions != nil {
		_ = oc.SessionOptions.Destroy()
		oc.SessionOptions = nil
	}
}

func (oc *OnnxConfig) newSessionOptions() (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("创建 SessionOptions 失败: %w", err)
	}
	if oc.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(oc.NumThreads); err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("设置线程数失败: %w", err)
		}
	}
	if err := opts.SetCpuMemArena(oc.EnableCpuMemArena); err != nil {
		_ = opts.Destroy()
		return nil, fmt.Errorf("设置内存池失败: %w", err)
	}
	return opts, nil
}

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = DefaultLibraryPath()
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return NewError(KindAssetUnavailable, libPath, fmt.Errorf("初始化 ONNX Runtime 失败: %w", err))
	}
	return nil
}

// appendProvider 追加执行后端，当前绑定不支持的后端直接返回错误
func appendProvider(opts *ort.SessionOptions, p Provider) error {
	switch p {
	case ProviderCUDA:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cudaOpts.Destroy()
		return opts.AppendExecutionProviderCUDA(cudaOpts)
	case ProviderTensorRT:
		trtOpts, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return err
		}
		defer trtOpts.Destroy()
		return opts.AppendExecutionProviderTensorRT(trtOpts)
	case ProviderCoreML:
		return opts.AppendExecutionProviderCoreML(0)
	case ProviderDirectML:
		return opts.AppendExecutionProviderDirectML(0)
	case ProviderOpenVINO:
		return opts.AppendExecutionProviderOpenVINO(map[string]string{})
	default:
		return fmt.Errorf("当前构建未包含 %s 执行后端", p)
	}
}
