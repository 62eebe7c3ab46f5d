package speech

import (
	"fmt"
	"strings"
)

// Provider ONNX Runtime 执行后端
type Provider string

const (
	ProviderCPU      Provider = "cpu"
	ProviderCUDA     Provider = "cuda"
	ProviderCoreML   Provider = "coreml"
	ProviderDirectML Provider = "directml"
	ProviderTensorRT Provider = "tensorrt"
	ProviderROCm     Provider = "rocm"
	ProviderOpenVINO Provider = "openvino"
	ProviderOneDNN   Provider = "onednn"
	ProviderWebGPU   Provider = "webgpu"
)

// Providers 所有可识别的执行后端
var Providers = []Provider{
	ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderDirectML, ProviderTensorRT,
	ProviderROCm, ProviderOpenVINO, ProviderOneDNN, ProviderWebGPU,
}

// ParseProvider 解析执行后端名称，空字符串视为 cpu
func ParseProvider(s string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ProviderCPU, nil
	}
	for _, p := range Providers {
		if string(p) == name {
			return p, nil
		}
	}
	return "", NewError(KindInvalidArgument, "provider "+s, fmt.Errorf("可选值: %s", providerList()))
}

func providerList() string {
	names := make([]string, len(Providers))
	for i, p := range Providers {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
