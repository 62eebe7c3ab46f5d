package phonemize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// EspeakCLI 调用 espeak-ng 可执行文件生成音素
type EspeakCLI struct {
	Path     string        // 可执行文件路径，为空时在 PATH 中查找 espeak-ng / espeak
	LibDir   string        // 附加到动态库搜索路径
	DataPath string        // 传给 --path
	Timeout  time.Duration // 单次调用超时，默认 30s
}

// TextToPhonemes 每行输出为一个子句
func (e *EspeakCLI) TextToPhonemes(text, lang string) ([]string, error) {
	bin, err := e.binary()
	if err != nil {
		return nil, err
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	args := []string{"-q", "-b", "1", "--ipa", "-v", lang}
	if e.DataPath != "" {
		args = append(args, "--path", e.DataPath)
	}
	args = append(args, "--stdin")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(text)
	if e.LibDir != "" {
		cmd.Env = append(os.Environ(), libPathEnv()+"="+e.LibDir+string(os.PathListSeparator)+os.Getenv(libPathEnv()))
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s 执行失败: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}

	var clauses []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			clauses = append(clauses, line+" ")
		}
	}
	return clauses, nil
}

func (e *EspeakCLI) binary() (string, error) {
	if e.Path != "" {
		return e.Path, nil
	}
	for _, name := range []string{"espeak-ng", "espeak"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("未找到 espeak-ng 可执行文件")
}

func libPathEnv() string {
	switch runtime.GOOS {
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	case "windows":
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// BackendConfig 后端选择参数
type BackendConfig struct {
	Kind     string // auto | lib | cli
	Path     string // espeak-ng 可执行文件
	LibDir   string
	DataPath string
}

// NewBackend 按配置创建后端，auto 优先动态库，失败时退回命令行
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "auto":
		if lib, err := NewEspeakLib(cfg.LibDir, cfg.DataPath); err == nil {
			return lib, nil
		}
		cli := &EspeakCLI{Path: cfg.Path, LibDir: cfg.LibDir, DataPath: cfg.DataPath}
		if _, err := cli.binary(); err != nil {
			return nil, err
		}
		return cli, nil
	case "lib":
		lib, err := NewEspeakLib(cfg.LibDir, cfg.DataPath)
		if err != nil {
			return nil, err
		}
		return lib, nil
	case "cli":
		return &EspeakCLI{Path: cfg.Path, LibDir: cfg.LibDir, DataPath: cfg.DataPath}, nil
	default:
		return nil, fmt.Errorf("未知的 G2P 后端: %s", cfg.Kind)
	}
}
