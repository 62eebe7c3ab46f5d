// Package config 命令行配置，按 默认值 -> 配置文件 -> 环境变量 的顺序覆盖
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	speech "github.com/getcharzp/go-kittentts"
	"github.com/getcharzp/go-kittentts/assets"
	"github.com/getcharzp/go-kittentts/tts/kittentts"
)

// Config kittentts 命令行配置
type Config struct {
	ModelDir       string        `mapstructure:"model_dir"`
	Provider       string        `mapstructure:"provider"`
	OnnxRuntimeLib string        `mapstructure:"onnxruntime_lib"`
	NumThreads     int           `mapstructure:"num_threads"`
	BaseURL        string        `mapstructure:"base_url"`
	Espeak         EspeakConfig  `mapstructure:"espeak"`
	Cache          CacheConfig   `mapstructure:"cache"`
	Mirror         MirrorConfig  `mapstructure:"mirror"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// EspeakConfig G2P 后端
type EspeakConfig struct {
	Backend  string `mapstructure:"backend"` // auto, lib, cli
	Path     string `mapstructure:"path"`
	LibDir   string `mapstructure:"lib_dir"`
	DataPath string `mapstructure:"data_path"`
}

// CacheConfig 音素缓存
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // 为空不缓存，":memory:" 为进程内缓存
}

// MirrorConfig 模型镜像
type MirrorConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

// S3Config 对象存储镜像，Bucket 为空表示不启用
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"` // 支持 "${VAR}" 引用环境变量
}

// LoggingConfig 日志
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Load 读取配置
//
// configFile 非空时直接使用；否则依次搜索 ./kittentts.yaml、$HOME/.config/kittentts/kittentts.yaml、
// /etc/kittentts/kittentts.yaml，找不到配置文件时只使用默认值与环境变量
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("model_dir", "./models")
	v.SetDefault("provider", string(speech.ProviderCPU))
	v.SetDefault("onnxruntime_lib", speech.DefaultLibraryPath())
	v.SetDefault("num_threads", 0)
	v.SetDefault("base_url", assets.DefaultBaseURL)
	v.SetDefault("espeak.backend", "auto")
	v.SetDefault("espeak.path", "")
	v.SetDefault("espeak.lib_dir", "")
	v.SetDefault("espeak.data_path", "")
	v.SetDefault("cache.dir", "")
	v.SetDefault("mirror.s3.bucket", "")
	v.SetDefault("mirror.s3.prefix", "")
	v.SetDefault("mirror.s3.region", "")
	v.SetDefault("mirror.s3.endpoint", "")
	v.SetDefault("mirror.s3.access_key_id", "")
	v.SetDefault("mirror.s3.secret_access_key", "")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("kittentts")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "kittentts"))
		}
		v.AddConfigPath("/etc/kittentts")
	}

	// 环境变量: KITTENTTS_MODEL_DIR, KITTENTTS_ESPEAK_BACKEND 等
	v.SetEnvPrefix("KITTENTTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	} else {
		speech.Log("config").WithField("path", v.ConfigFileUsed()).Debug("已加载配置文件")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.Mirror.S3.AccessKeyID = resolveEnvRef(cfg.Mirror.S3.AccessKeyID)
	cfg.Mirror.S3.SecretAccessKey = resolveEnvRef(cfg.Mirror.S3.SecretAccessKey)
	return &cfg, nil
}

// resolveEnvRef 将 "${VAR}" 替换为环境变量的值
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if envVal := os.Getenv(val[2 : len(val)-1]); envVal != "" {
			return envVal
		}
	}
	return val
}

// EngineConfig 转换为引擎配置
func (c *Config) EngineConfig() (kittentts.Config, error) {
	cfg := kittentts.DefaultConfig()
	cfg.ModelDir = c.ModelDir
	cfg.Provider = c.Provider
	cfg.OnnxRuntimeLibPath = c.OnnxRuntimeLib
	cfg.NumThreads = c.NumThreads
	cfg.BaseURL = c.BaseURL
	cfg.EspeakBackend = c.Espeak.Backend
	cfg.EspeakPath = c.Espeak.Path
	cfg.EspeakLibDir = c.Espeak.LibDir
	cfg.EspeakDataPath = c.Espeak.DataPath
	cfg.PhonemeCacheDir = c.Cache.Dir

	if s3 := c.Mirror.S3; s3.Bucket != "" {
		src, err := assets.NewS3SourceFromOptions(assets.S3Options{
			Bucket:          s3.Bucket,
			Prefix:          s3.Prefix,
			Region:          s3.Region,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
		})
		if err != nil {
			return cfg, err
		}
		cfg.Mirror = src
	}
	return cfg, nil
}
