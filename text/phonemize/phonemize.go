// Package phonemize 驱动外部 G2P (espeak-ng) 并把输出重新切分为模型训练时使用的格式
//
// 处理流程:
//
//	text -> 按标点切分 -> Backend 逐段生成音素 -> 拼接 -> 正则切分 -> 空格连接
//
// G2P 失败时退回到对原文做同样的正则切分，并记录告警
package phonemize

import (
	"fmt"
	"regexp"
	"strings"

	speech "github.com/getcharzp/go-kittentts"
)

// Backend 音素生成后端
//
// 返回按子句划分的 IPA 音素串，每个子句以空格结尾，保留重音符号
type Backend interface {
	TextToPhonemes(text, lang string) ([]string, error)
}

// Cache 音素缓存
type Cache interface {
	Get(lang, text string) (string, bool)
	Put(lang, text, phonemes string)
}

// Options G2P 参数
type Options struct {
	PreservePunctuation bool // 保留标点
	WithStress          bool // 保留重音符号 ˈ ˌ
}

// DefaultOptions 与训练流程一致的参数
func DefaultOptions() Options {
	return Options{PreservePunctuation: true, WithStress: true}
}

// Phonemizer G2P 适配器
type Phonemizer struct {
	backend Backend
	opts    Options
	cache   Cache
}

// Option Phonemizer 可选项
type Option func(*Phonemizer)

// WithOptions 替换 G2P 参数
func WithOptions(opts Options) Option {
	return func(p *Phonemizer) { p.opts = opts }
}

// WithCache 启用音素缓存
func WithCache(c Cache) Option {
	return func(p *Phonemizer) { p.cache = c }
}

// New 创建 Phonemizer，backend 为 nil 时所有调用都会走回退路径
func New(backend Backend, opts ...Option) *Phonemizer {
	p := &Phonemizer{backend: backend, opts: DefaultOptions()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// wordPattern 对应 \w+|[^\w\s]，\w 取 Unicode 语义 (字母、组合符号、十进制数字、连接符)
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{Nd}\p{Pc}]+|[^\p{L}\p{M}\p{Nd}\p{Pc}\s\x{0B}\x{85}\p{Z}]`)

// Tokenize 将文本切分为单词串与单个标点
func Tokenize(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// Phonemize 文本转音素串，结果中单词与标点之间以单个空格分隔
//
// # Params:
//
//	text: 原始文本
//	lang: espeak 语言代码，例如 en-us
func (p *Phonemizer) Phonemize(text, lang string) string {
	if p.cache != nil {
		if cached, ok := p.cache.Get(lang, text); ok {
			return cached
		}
	}

	raw, err := p.generate(text, lang)
	if err != nil {
		speech.Log("phonemize").WithField("lang", lang).
			Warnf("G2P 失败，退回到原文切分: %v", speech.NewError(speech.KindPhonemizer, lang, err))
		return strings.Join(Tokenize(text), " ")
	}

	phonemes := strings.Join(Tokenize(raw), " ")
	if p.cache != nil {
		p.cache.Put(lang, text, phonemes)
	}
	return phonemes
}

// generate 调用后端并拼接各段音素
func (p *Phonemizer) generate(text, lang string) (string, error) {
	if p.backend == nil {
		return "", fmt.Errorf("未配置 G2P 后端")
	}

	segments := []segment{{text: text}}
	if p.opts.PreservePunctuation {
		segments = splitPunctuation(text)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if seg.mark {
			sb.WriteString(seg.text)
			continue
		}
		if strings.TrimSpace(seg.text) == "" {
			continue
		}
		clauses, err := p.backend.TextToPhonemes(seg.text, lang)
		if err != nil {
			return "", err
		}
		for _, c := range clauses {
			sb.WriteString(c)
		}
	}

	out := sb.String()
	if !p.opts.WithStress {
		out = strings.NewReplacer("ˈ", "", "ˌ", "").Replace(out)
	}
	return out, nil
}
