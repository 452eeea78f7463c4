package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/leaftok/leaftok-site/internal/config"
	"github.com/leaftok/leaftok-site/internal/content"
	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/proxy"
	"github.com/leaftok/leaftok-site/internal/site"
)

// cliEnv 是子命令共享的配置、日志与文件系统。
type cliEnv struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
	fs         afero.Fs
}

func loadEnv(configPath string) (*cliEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &cliEnv{
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		fs:         afero.NewOsFs(),
	}, nil
}

func (e *cliEnv) repository() *content.Repository {
	return content.NewRepository(e.fs, e.cfg.Global.ContentPath, e.logger)
}

// buildSite 把整站写入 OutputPath；StaticPath 中的文件覆盖内置资源。
func (e *cliEnv) buildSite(ctx context.Context) (*site.Result, error) {
	g := e.cfg.Global
	if err := e.fs.MkdirAll(g.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	var static afero.Fs
	if g.StaticPath != "" {
		static = afero.NewReadOnlyFs(afero.NewBasePathFs(e.fs, g.StaticPath))
	}
	builder, err := site.NewBuilder(site.Options{
		Repository:  e.repository(),
		Site:        e.cfg.Site,
		Output:      afero.NewBasePathFs(e.fs, g.OutputPath),
		Static:      static,
		Concurrency: g.BuildConcurrency,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, err
	}
	result, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("构建失败: %w", err)
	}
	return result, nil
}

// watchAndRebuild 在内容变化后重新构建，直到 ctx 结束；单次构建失败只记录日志。
func (e *cliEnv) watchAndRebuild(ctx context.Context) error {
	watcher, err := content.NewWatcher(e.cfg.Global.ContentPath, content.DefaultDebounce, e.logger)
	if err != nil {
		return fmt.Errorf("监听内容目录失败: %w", err)
	}
	logger := logging.Component(e.logger, "watch")
	logger.WithField("path", e.cfg.Global.ContentPath).Info("content_watch_started")
	return watcher.Run(ctx, func(paths []string) {
		logger.WithField("changed", len(paths)).Info("content_changed")
		if _, err := e.buildSite(ctx); err != nil {
			logger.WithError(err).Error("rebuild_failed")
		}
	})
}

// origin 在配置了 Upstream 时回源远端站点，否则直接读取构建输出。
func (e *cliEnv) origin(client *http.Client) (proxy.Origin, error) {
	if e.cfg.Cache.UsesUpstream() {
		return proxy.NewHTTPOrigin(client, e.cfg.Cache.Upstream)
	}
	if _, err := os.Stat(e.cfg.Global.OutputPath); err != nil {
		e.logger.WithField("path", e.cfg.Global.OutputPath).WithError(err).Warn("output_missing")
	}
	return proxy.NewFSOrigin(e.fs, e.cfg.Global.OutputPath), nil
}
