package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getcharzp/go-kittentts/text/langdetect"
)

var listVoicesCmd = &cobra.Command{
	Use:   "list-voices",
	Short: "列出可用音色",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		engine, err := newEngine(cmd, cfg)
		if err != nil {
			return err
		}
		defer engine.Destroy()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "可用音色 (执行后端: %s)\n", engine.ActiveProvider())
		for _, v := range engine.Voices() {
			fmt.Fprintf(out, "  %s\n", v)
		}
		fmt.Fprintf(out, "自动识别的语言: %s\n", strings.Join(langdetect.Supported(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listVoicesCmd)
}
