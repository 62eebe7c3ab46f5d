// Package cache 音素结果缓存，避免重复调用 espeak
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	speech "github.com/getcharzp/go-kittentts"
)

// ErrNotFound key 不存在
var ErrNotFound = errors.New("cache: not found")

// Store 键值存储
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// entry 缓存条目，保留原文用于校验哈希碰撞
type entry struct {
	Lang     string `msgpack:"lang"`
	Text     string `msgpack:"text"`
	Phonemes string `msgpack:"phonemes"`
	Backend  string `msgpack:"backend,omitempty"`
}

// PhonemeCache 基于 Store 的音素缓存
type PhonemeCache struct {
	store   Store
	backend string
}

// NewPhonemeCache 创建音素缓存，backend 用于区分不同 G2P 后端产生的结果
func NewPhonemeCache(store Store, backend string) *PhonemeCache {
	return &PhonemeCache{store: store, backend: backend}
}

// Key 缓存键 phoneme:<lang>:<sha256(text)>
func Key(lang, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "phoneme:" + lang + ":" + hex.EncodeToString(sum[:])
}

// Get 读取缓存，损坏或不匹配的条目视为未命中
func (c *PhonemeCache) Get(lang, text string) (string, bool) {
	data, err := c.store.Get(context.Background(), Key(lang, text))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			speech.Log("cache").Debugf("读取缓存失败: %v", err)
		}
		return "", false
	}
	var e entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		speech.Log("cache").Debugf("缓存条目损坏: %v", err)
		return "", false
	}
	if e.Lang != lang || e.Text != text || e.Backend != c.backend {
		return "", false
	}
	return e.Phonemes, true
}

// Put 写入缓存，失败只记录日志
func (c *PhonemeCache) Put(lang, text, phonemes string) {
	data, err := msgpack.Marshal(&entry{Lang: lang, Text: text, Phonemes: phonemes, Backend: c.backend})
	if err != nil {
		speech.Log("cache").Debugf("编码缓存条目失败: %v", err)
		return
	}
	if err := c.store.Set(context.Background(), Key(lang, text), data); err != nil {
		speech.Log("cache").Warnf("写入缓存失败: %v", err)
	}
}

// Close 关闭底层存储
func (c *PhonemeCache) Close() error {
	return c.store.Close()
}
