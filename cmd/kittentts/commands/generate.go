package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getcharzp/go-kittentts/audio"
	"github.com/getcharzp/go-kittentts/tts/kittentts"
)

var (
	genText       string
	genOutput     string
	genVoice      string
	genSpeed      float32
	genFormat     string
	genTrim       string
	genSampleRate int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "合成语音并写入 WAV 文件",
	Long: `合成语音并写入 WAV 文件，缺失的模型文件会自动下载。

示例:
  kittentts generate -t "Hello, world." -o hello.wav
  kittentts generate -t "Bonjour" -o fr.wav -v expr-voice-2-f -s 0.9
  kittentts generate -t "Hi" -o hi.wav --format s16 --sample-rate 16000`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genText, "text", "t", "", "待合成文本")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "输出 WAV 路径")
	generateCmd.Flags().StringVarP(&genVoice, "voice", "v", kittentts.DefaultVoice, "音色")
	generateCmd.Flags().Float32VarP(&genSpeed, "speed", "s", 1.0, "语速，1.0 为正常语速")
	generateCmd.Flags().StringVar(&genFormat, "format", "f32", "采样格式: f32, s16")
	generateCmd.Flags().StringVar(&genTrim, "trim", "adaptive", "静音裁剪: adaptive, fixed, none")
	generateCmd.Flags().IntVar(&genSampleRate, "sample-rate", kittentts.SampleRate, "输出采样率，非 24000 时输出 16 位 PCM")
	_ = generateCmd.MarkFlagRequired("text")
	_ = generateCmd.MarkFlagRequired("output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format, err := audio.ParseWavFormat(genFormat)
	if err != nil {
		return err
	}
	trim, err := audio.ParseTrimPolicy(genTrim)
	if err != nil {
		return err
	}
	if genSampleRate <= 0 {
		return fmt.Errorf("采样率非法: %d", genSampleRate)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.WavFormat = format
	cfg.Trim = trim

	engine, err := newEngine(cmd, cfg)
	if err != nil {
		return err
	}
	defer engine.Destroy()

	if genSampleRate == kittentts.SampleRate {
		if err := engine.GenerateToFile(genText, genVoice, genSpeed, genOutput); err != nil {
			return err
		}
	} else {
		data, err := engine.GenerateToWav(genText, genVoice, genSpeed, kittentts.WavOptions{Format: format, SampleRate: genSampleRate})
		if err != nil {
			return err
		}
		if err := audio.WriteFileAtomic(genOutput, data); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "已保存到 %s\n", genOutput)
	return nil
}
