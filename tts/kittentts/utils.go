package kittentts

import (
	"github.com/getcharzp/go-kittentts/assets"
	"github.com/getcharzp/go-kittentts/cache"
	"github.com/getcharzp/go-kittentts/text/phonemize"
)

// assetSources 镜像优先，其次官方地址
func assetSources(cfg Config) []assets.Source {
	var sources []assets.Source
	if cfg.Mirror != nil {
		sources = append(sources, cfg.Mirror)
	}
	return append(sources, assets.NewHTTPSource(cfg.BaseURL))
}

// openPhonemeCache 打开音素缓存，dir 为空时返回 nil
func openPhonemeCache(dir, backend string) (*cache.PhonemeCache, error) {
	switch dir {
	case "":
		return nil, nil
	case MemoryCache:
		return cache.NewPhonemeCache(cache.NewMemory(), backend), nil
	}
	store, err := cache.NewBadger(cache.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, err
	}
	return cache.NewPhonemeCache(store, backend), nil
}

func backendName(b phonemize.Backend) string {
	switch b.(type) {
	case *phonemize.EspeakLib:
		return "espeak-lib"
	case *phonemize.EspeakCLI:
		return "espeak-cli"
	case nil:
		return "none"
	default:
		return "custom"
	}
}
