//go:build linux || darwin

package phonemize

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

const (
	espeakAudioOutputSynchronous = 0x02
	espeakInitializeDontExit     = 0x8000
	espeakCharsUTF8              = 1
	espeakPhonemesIPA            = 0x02
)

// libespeak-ng 的初始化状态与当前语言都是进程级的，所有实例共用
var (
	espeakMu    sync.Mutex
	espeakOnce  sync.Once
	espeakFns   espeakFuncs
	espeakErr   error
	espeakVoice string // 最近一次 espeak_SetVoiceByName 设置的语言
)

type espeakFuncs struct {
	initialize     func(output, buflength int32, path *byte, options int32) int32
	setVoiceByName func(name string) int32
	textToPhonemes func(textptr **byte, textmode, phonememode int32) string
}

// EspeakLib 通过 purego 直接调用 libespeak-ng，无需 cgo
//
// 动态库在进程内只加载并初始化一次，LibDir 与 DataPath 以第一次调用 NewEspeakLib 时为准，失败后不再重试
type EspeakLib struct {
	LibDir   string // 动态库所在目录，为空时读取 ESPEAK_LIB_DIR 后再走系统搜索路径
	DataPath string // espeak-ng-data 的上级目录，为空使用编译时默认位置

	fns *espeakFuncs
}

// NewEspeakLib 加载 libespeak-ng 并完成初始化
func NewEspeakLib(libDir, dataPath string) (*EspeakLib, error) {
	espeakOnce.Do(func() {
		espeakMu.Lock()
		defer espeakMu.Unlock()
		espeakErr = espeakFns.load(libDir, dataPath)
	})
	if espeakErr != nil {
		return nil, espeakErr
	}
	return &EspeakLib{LibDir: libDir, DataPath: dataPath, fns: &espeakFns}, nil
}

func (f *espeakFuncs) load(libDir, dataPath string) error {
	handle, err := openEspeak(libDir)
	if err != nil {
		return err
	}
	purego.RegisterLibFunc(&f.initialize, handle, "espeak_Initialize")
	purego.RegisterLibFunc(&f.setVoiceByName, handle, "espeak_SetVoiceByName")
	purego.RegisterLibFunc(&f.textToPhonemes, handle, "espeak_TextToPhonemes")

	var path *byte
	if dataPath != "" {
		buf := append([]byte(dataPath), 0)
		path = &buf[0]
	}
	if rate := f.initialize(espeakAudioOutputSynchronous, 0, path, espeakInitializeDontExit); rate <= 0 {
		return fmt.Errorf("espeak_Initialize 失败: %d", rate)
	}
	// 初始化会重置语言
	espeakVoice = ""
	return nil
}

// TextToPhonemes 生成 IPA 音素，每个子句一项
func (e *EspeakLib) TextToPhonemes(text, lang string) ([]string, error) {
	if e.fns == nil {
		return nil, fmt.Errorf("libespeak-ng 未初始化")
	}

	espeakMu.Lock()
	defer espeakMu.Unlock()

	if espeakVoice != lang {
		if rc := e.fns.setVoiceByName(lang); rc != 0 {
			espeakVoice = ""
			return nil, fmt.Errorf("espeak 不支持语言 %s: %d", lang, rc)
		}
		espeakVoice = lang
	}

	buf := append([]byte(text), 0)
	p := &buf[0]
	var clauses []string
	// espeak 每次消费一个子句并前移指针，读完后置空
	for i := 0; p != nil && i < len(buf); i++ {
		clause := e.fns.textToPhonemes(&p, espeakCharsUTF8, espeakPhonemesIPA)
		if clause != "" {
			clauses = append(clauses, clause+" ")
		}
	}
	runtime.KeepAlive(buf)
	return clauses, nil
}

func espeakLibNames() []string {
	if runtime.GOOS == "darwin" {
		return []string{"libespeak-ng.1.dylib", "libespeak-ng.dylib"}
	}
	return []string{"libespeak-ng.so.1", "libespeak-ng.so"}
}

func openEspeak(libDir string) (uintptr, error) {
	if libDir == "" {
		libDir = os.Getenv("ESPEAK_LIB_DIR")
	}

	var candidates []string
	for _, name := range espeakLibNames() {
		if libDir != "" {
			candidates = append(candidates, filepath.Join(libDir, name))
		}
	}
	candidates = append(candidates, espeakLibNames()...)
	if runtime.GOOS == "darwin" {
		candidates = append(candidates,
			"/opt/homebrew/lib/libespeak-ng.dylib",
			"/usr/local/lib/libespeak-ng.dylib",
		)
	}

	var lastErr error
	for _, c := range candidates {
		handle, err := purego.Dlopen(c, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("加载 libespeak-ng 失败: %w", lastErr)
}
