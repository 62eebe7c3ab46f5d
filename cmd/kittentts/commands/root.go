package commands

import (
	"context"

	"github.com/spf13/cobra"

	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/internal/config"
	"github.com/getcharzp/go-kittentts/tts/kittentts"
)

var (
	cfgFile   string
	modelDir  string
	provider  string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kittentts",
	Short: "KittenTTS nano 离线语音合成",
	Long: `基于 kitten-tts-nano ONNX 模型的离线语音合成，输出 24kHz 单声道 WAV。

示例:
  kittentts generate -t "Hello, world." -o hello.wav
  kittentts list-voices
  kittentts info hello.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

// Execute 执行命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件 (默认搜索 ./kittentts.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelDir, "model-dir", "m", "./models", "模型目录")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "cpu", "执行后端: cpu, cuda, coreml, directml, tensorrt, rocm, openvino, onednn, webgpu")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "日志格式: text, json")
}

// setupLogging 日志参数取自配置文件与环境变量，命令行显式指定时优先
func setupLogging(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		format = logFormat
	}
	return speech.SetupLogging(level, format)
}

// loadConfig 读取配置文件与环境变量，命令行显式指定的参数优先
func loadConfig(cmd *cobra.Command) (kittentts.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return kittentts.Config{}, err
	}
	if cmd.Flags().Changed("model-dir") {
		cfg.ModelDir = modelDir
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = provider
	}
	if _, err := speech.ParseProvider(cfg.Provider); err != nil {
		return kittentts.Config{}, err
	}
	return cfg.EngineConfig()
}

func newEngine(cmd *cobra.Command, cfg kittentts.Config) (*kittentts.Engine, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return kittentts.NewEngine(ctx, cfg)
}
