package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dep2p/go-netssl"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "NETSSL_"

// settings 运行参数
//
// 优先级（从高到低）：命令行参数 > 环境变量 > .env 文件 > 默认值。
// 安全相关的键只从配置文件读取。
type settings struct {
	Listen           string        `env:"LISTEN" envDefault:"0.0.0.0:8443"`
	ConfigFile       string        `env:"CONFIG"`
	ConfigPrefix     string        `env:"CONFIG_PREFIX"`
	MetricsAddr      string        `env:"METRICS_ADDR"`
	AcceptRate       int           `env:"ACCEPT_RATE"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT" envDefault:"2m"`
}

// loadDotEnv 加载 .env 文件，文件不存在时忽略
//
// 日志级别在包初始化时已读取，.env 中的 NETSSL_LOG_* 不生效。
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadSettings 从环境变量读取参数，再用显式设置的命令行参数覆盖
func loadSettings(fset *flag.FlagSet, environ map[string]string) (*settings, error) {
	cfg := &settings{}
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = f.Value.String()
		case "config":
			cfg.ConfigFile = f.Value.String()
		case "prefix":
			cfg.ConfigPrefix = f.Value.String()
		case "metrics":
			cfg.MetricsAddr = f.Value.String()
		case "accept-rate":
			cfg.AcceptRate = f.Value.(flag.Getter).Get().(int)
		case "handshake-timeout":
			cfg.HandshakeTimeout = f.Value.(flag.Getter).Get().(time.Duration)
		case "idle-timeout":
			cfg.IdleTimeout = f.Value.(flag.Getter).Get().(time.Duration)
		}
	})

	if cfg.Listen == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	return cfg, nil
}

// options 转换为应用选项
func (s *settings) options() []netssl.Option {
	var opts []netssl.Option
	if s.ConfigFile != "" {
		opts = append(opts, netssl.WithConfigFile(s.ConfigFile))
	}
	if s.ConfigPrefix != "" {
		opts = append(opts, netssl.WithConfigPrefix(s.ConfigPrefix))
	}
	opts = append(opts,
		netssl.WithListenAddress(s.Listen),
		netssl.WithHandshakeTimeout(s.HandshakeTimeout),
	)
	if s.AcceptRate > 0 {
		opts = append(opts, netssl.WithAcceptRate(s.AcceptRate, s.AcceptRate))
	}
	return opts
}
