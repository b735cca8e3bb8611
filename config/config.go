package config

import (
	"log"
	"time"

	pkgconfig "mailassist/pkg/config"
)

type Config struct {
	Server pkgconfig.ServerConfig `yaml:"server"`
	Log    pkgconfig.LogConfig    `yaml:"log"`
	Store  pkgconfig.StoreConfig  `yaml:"store"`
	Ingest pkgconfig.IngestConfig `yaml:"ingest"`
	LLM    pkgconfig.LLMConfig    `yaml:"llm"`
	DB     pkgconfig.DBConfig     `yaml:"db"`
	Redis  pkgconfig.RedisConfig  `yaml:"redis"`
	MQ     pkgconfig.MQConfig     `yaml:"mq"`
	JWT    pkgconfig.JWTConfig    `yaml:"jwt"`
}

// Load 使用统一配置中心加载配置，失败直接退出
func Load() *Config {
	cfg, err := LoadFrom(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom 从指定目录加载指定环境的配置
func LoadFrom(env, dir string) (*Config, error) {
	cfgMap, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := pkgconfig.Decode(cfgMap, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideStoreFromEnv(&cfg.Store)
	pkgconfig.OverrideIngestFromEnv(&cfg.Ingest)
	pkgconfig.OverrideLLMFromEnv(&cfg.LLM)
	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)

	return cfg, nil
}

// Default 默认配置，yaml 中未出现的字段保持这里的值
func Default() *Config {
	return &Config{
		Server: pkgconfig.ServerConfig{Port: ":8000"},
		Log:    pkgconfig.LogConfig{Level: "info"},
		Store: pkgconfig.StoreConfig{
			Driver:   "file",
			Path:     "data/store.json",
			RedisKey: "mailassist:snapshot",
		},
		Ingest: pkgconfig.IngestConfig{
			SeedPath:     "data/mock_inbox.json",
			PollInterval: 5 * time.Second,
		},
		LLM: pkgconfig.LLMConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
	}
}
