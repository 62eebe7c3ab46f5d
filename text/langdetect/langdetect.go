// Package langdetect 基于 whatlanggo 的语种识别，结果直接转换为 espeak 的语言代码
package langdetect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DefaultLang 无法识别或不支持的语种统一回退为美式英语
const DefaultLang = "en-us"

var langCodes = map[whatlanggo.Lang]string{
	whatlanggo.Eng: "en-us",
	whatlanggo.Spa: "es",
	whatlanggo.Fra: "fr",
	whatlanggo.Deu: "de",
	whatlanggo.Ita: "it",
	whatlanggo.Por: "pt",
	whatlanggo.Rus: "ru",
	whatlanggo.Jpn: "ja",
	whatlanggo.Kor: "ko",
	whatlanggo.Cmn: "zh",
}

// Detect 识别文本语种
//
// 文本中没有可识别的书写系统时 ok 为 false
func Detect(text string) (code string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	info := whatlanggo.Detect(text)
	if info.Script == nil {
		return "", false
	}
	if code, ok := langCodes[info.Lang]; ok {
		return code, true
	}
	return DefaultLang, true
}

// DetectOrDefault 识别失败时返回 DefaultLang
func DetectOrDefault(text string) string {
	if code, ok := Detect(text); ok {
		return code
	}
	return DefaultLang
}

// Supported 返回支持的语言代码
func Supported() []string {
	return []string{"en-us", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh"}
}
