package kittentts

import (
	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/text/langdetect"
	"github.com/getcharzp/go-kittentts/text/symbols"
)

// textToIds 文本转模型输入 ID，首尾补 0
func (e *Engine) textToIds(text string) []int64 {
	lang := langdetect.DetectOrDefault(text)
	phonemes := e.phonemizer.Phonemize(text, lang)
	ids := symbols.Frame(symbols.Clean(phonemes))

	speech.Log("kittentts").WithField("lang", lang).WithField("tokens", len(ids)).
		Debugf("音素: %s", phonemes)
	return ids
}
