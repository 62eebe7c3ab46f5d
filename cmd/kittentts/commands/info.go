package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getcharzp/go-kittentts/audio"
)

var infoCmd = &cobra.Command{
	Use:   "info <file.wav>",
	Short: "查看 WAV 文件参数",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, info, err := audio.ReadWavFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "文件:   %s\n", args[0])
		fmt.Fprintf(out, "采样率: %d Hz\n", info.SampleRate)
		fmt.Fprintf(out, "声道:   %d\n", info.Channels)
		fmt.Fprintf(out, "格式:   %s (%d bit)\n", info.Format, info.BitsPerSample)
		fmt.Fprintf(out, "时长:   %.3fs\n", info.Duration().Seconds())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
