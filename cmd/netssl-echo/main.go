// Package main 提供 TLS 回显服务
//
// netssl-echo 在安全监听套接字上接受连接，握手完成后把收到的数据原样写回，
// 可选地在独立地址上暴露 Prometheus 指标。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-netssl"
	"github.com/dep2p/go-netssl/internal/util/logger"
)

var log = logger.Logger("cmd")

// Version 版本号，构建时通过 -ldflags 注入
var Version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fset := flag.NewFlagSet("netssl-echo", flag.ContinueOnError)
	fset.String("listen", "", "监听地址，如 0.0.0.0:8443")
	fset.String("config", "", "配置文件路径（.json / .toml / .yaml）")
	fset.String("prefix", "", "配置键命名空间")
	fset.String("metrics", "", "指标服务地址，为空时不启用")
	fset.Int("accept-rate", 0, "每秒允许接受的连接数（0 = 不限速）")
	fset.Duration("handshake-timeout", 0, "握手超时")
	fset.Duration("idle-timeout", 0, "连接空闲超时")
	envFile := fset.String("env-file", ".env", "环境变量文件")
	showVersion := fset.Bool("version", false, "显示版本信息")

	if err := fset.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("netssl-echo %s\n", Version)
		return nil
	}

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := loadSettings(fset, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, reg, err := start(ctx, cfg)
	if err != nil {
		return err
	}
	return serve(ctx, app, reg, cfg)
}

// start 创建并启动应用
func start(ctx context.Context, cfg *settings) (*netssl.App, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := netssl.New(append(cfg.options(), netssl.WithRegisterer(reg))...)
	if err != nil {
		return nil, nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, nil, err
	}
	log.Info("回显服务已启动", "version", Version, "addr", app.Listener().Address().String())
	return app, reg, nil
}

// serve 运行回显与指标服务，ctx 取消后依次关闭
func serve(ctx context.Context, app *netssl.App, reg *prometheus.Registry, cfg *settings) error {
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Warn("停止应用失败", "err", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := app.Serve(gctx, netssl.HandlerFunc(echoHandler(cfg.IdleTimeout)))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("指标服务已启动", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	log.Info("回显服务已停止", "traffic_in", app.Traffic().TotalIn, "traffic_out", app.Traffic().TotalOut)
	return err
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// echoHandler 把收到的数据写回，空闲超过 idle 时断开
func echoHandler(idle time.Duration) func(context.Context, *netssl.StreamSocket) {
	return func(_ context.Context, s *netssl.StreamSocket) {
		buf := make([]byte, 4096)
		for {
			if idle > 0 {
				_ = s.SetTimeout(idle)
			}
			n, err := s.ReceiveBytes(buf)
			if n > 0 {
				if _, werr := s.SendBytes(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Debug("连接结束", "conn", s.ID(), "err", err)
				}
				return
			}
		}
	}
}
