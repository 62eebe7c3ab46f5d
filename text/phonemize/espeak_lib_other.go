//go:build !(linux || darwin)

package phonemize

import (
	"fmt"
	"runtime"
)

// EspeakLib 当前平台不支持动态加载，请使用 EspeakCLI
type EspeakLib struct {
	LibDir   string
	DataPath string
}

// NewEspeakLib 当前平台始终返回错误
func NewEspeakLib(libDir, dataPath string) (*EspeakLib, error) {
	return nil, fmt.Errorf("%s 平台不支持动态加载 libespeak-ng", runtime.GOOS)
}

func (e *EspeakLib) TextToPhonemes(text, lang string) ([]string, error) {
	return nil, fmt.Errorf("%s 平台不支持动态加载 libespeak-ng", runtime.GOOS)
}
