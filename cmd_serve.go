package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leaftok/leaftok-site/internal/cache"
	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/metrics"
	"github.com/leaftok/leaftok-site/internal/proxy"
	"github.com/leaftok/leaftok-site/internal/reportstore"
	"github.com/leaftok/leaftok-site/internal/server"
	"github.com/leaftok/leaftok-site/internal/server/routes"
	"github.com/leaftok/leaftok-site/internal/version"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	build bool
	watch bool
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var so serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "通过缓存路由器提供站点，并接收指标上报",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(opts.configPath())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), env, so)
		},
	}
	cmd.Flags().BoolVar(&so.build, "build", false, "启动前先构建站点")
	cmd.Flags().BoolVar(&so.watch, "watch", false, "内容变化时自动重建")
	return cmd
}

// runServe 启动顺序：配置 → 构建（可选）→ 磁盘缓存与生命周期 → 指标存储 → Fiber server。
func runServe(ctx context.Context, env *cliEnv, opts serveOptions) error {
	cfg := env.cfg
	logger := env.logger

	if opts.build || opts.watch {
		if _, err := env.buildSite(ctx); err != nil {
			return err
		}
	}

	store, err := cache.NewStore(cfg.Cache.StoragePath)
	if err != nil {
		return fmt.Errorf("初始化缓存目录失败: %w", err)
	}
	client := server.NewUpstreamClient(cfg)
	origin, err := env.origin(client)
	if err != nil {
		return err
	}

	lifecycle := proxy.NewLifecycle(cfg.Cache, store, origin, logger)
	// 预缓存失败只影响离线能力，已在 Install 内记录。
	_ = lifecycle.Install(ctx)
	if _, err := lifecycle.Activate(ctx); err != nil {
		logger.WithError(err).Warn("cache_activate_incomplete")
	}

	rules, err := cfg.Cache.BuildRuleTable()
	if err != nil {
		return fmt.Errorf("构建缓存规则失败: %w", err)
	}
	handler, err := proxy.NewHandler(proxy.HandlerOptions{
		Origin:          origin,
		Generation:      lifecycle.Generation(),
		Rules:           rules,
		OfflineFallback: cfg.Cache.OfflineFallback,
		SiteHosts:       []string{cfg.Site.URL, cfg.Cache.Upstream},
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	reports, err := reportstore.Open(ctx, cfg.Metrics.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("打开报告存储失败: %w", err)
	}
	defer reports.Close()

	sender := metrics.NewHTTPSender(client, cfg.Metrics.Endpoint)
	notifier := metrics.NewCriticalNotifier(sender, cfg.Global.UpstreamTimeout.DurationValue(), logger)
	defer notifier.Wait()
	tracker := metrics.NewTracker(newCollector(env, notifier.Notify))
	reporter := metrics.NewReporter(tracker, sender, cfg.Metrics.ReportInterval.DurationValue(), logger)

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Proxy:      handler,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		return err
	}
	routes.RegisterCacheRoutes(app, lifecycle, rules)
	routes.RegisterMetricsRoutes(app, routes.MetricsOptions{Store: reports, Tracker: tracker, Logger: logger})

	fields := logging.BaseFields("startup", env.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_version"] = cfg.Cache.VersionTag()
	fields["upstream"] = cfg.Cache.UsesUpstream()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lifecycle.RunSweeper(gctx, cfg.Cache.SweepInterval.DurationValue())
		return nil
	})
	g.Go(func() error {
		return reporter.Run(gctx)
	})
	if opts.watch {
		g.Go(func() error {
			return env.watchAndRebuild(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		_ = app.ShutdownWithTimeout(shutdownTimeout)
		return nil
	})
	g.Go(func() error {
		if gctx.Err() != nil {
			return nil
		}
		logger.WithFields(logrus.Fields{
			"action": "listen",
			"port":   cfg.Global.ListenPort,
		}).Info("Fiber 服务启动")
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Global.ListenPort), fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			return fmt.Errorf("HTTP 服务启动失败: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newCollector 按 [Metrics] 阈值创建采集器。
func newCollector(env *cliEnv, sink metrics.CriticalSink) *metrics.Collector {
	collector := metrics.NewCollector(sink)
	collector.SlowResource = env.cfg.Metrics.SlowResource.DurationValue()
	collector.LargeResource = env.cfg.Metrics.LargeResourceBytes
	return collector
}
