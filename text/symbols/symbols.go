// Package symbols 维护 kitten-tts 模型的输入符号表
//
// 符号表的顺序与模型 embedding 层一一对应，任何改动都会让模型输出错误的音频
package symbols

import "sync"

const (
	// Pad 填充符，id 固定为 0
	Pad = "$"
	// Punctuation 标点，末尾为 ASCII 空格
	Punctuation = ";:,.!?¡¿—…\"«»“” "
	// Letters ASCII 字母
	Letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// LettersIPA 国际音标
	LettersIPA = "ɑɐɒæɓʙβɔɕçɗɖðʤəɘɚɛɜɝɞɟʄɡɠɢʛɦɧħɥʜɨɪʝɭɬɫɮʟɱɯɰŋɳɲɴøɵɸθœɶʘɹɺɾɻʀʁɽʂʃʈʧʉʊʋⱱʌɣɤʍχʎʏʑʐʒʔʡʕʢǀǁǂǃˈˌːˑʼʴʰʱʲʷˠˤ˞↓↑→↗↘'̩'ᵻ"

	// PadID 句首句尾的边界 id
	PadID int64 = 0
)

var (
	table     []rune
	symbolIDs map[rune]int64
	tableOnce sync.Once
)

// initTable 按 Pad, Punctuation, Letters, LettersIPA 的顺序拼接，重复字符保留首次出现的 id
func initTable() {
	tableOnce.Do(func() {
		table = []rune(Pad + Punctuation + Letters + LettersIPA)
		symbolIDs = make(map[rune]int64, len(table))
		for i, r := range table {
			if _, ok := symbolIDs[r]; !ok {
				symbolIDs[r] = int64(i)
			}
		}
	})
}

// IDOf 查询字符对应的 id
func IDOf(r rune) (int64, bool) {
	initTable()
	id, ok := symbolIDs[r]
	return id, ok
}

// Len 符号表长度 (含重复字符)
func Len() int {
	initTable()
	return len(table)
}

// Symbols 返回符号表副本
func Symbols() []rune {
	initTable()
	out := make([]rune, len(table))
	copy(out, table)
	return out
}
