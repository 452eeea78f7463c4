package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leaftok/leaftok-site/internal/metrics"
	"github.com/leaftok/leaftok-site/internal/server"
)

type monitorOptions struct {
	once   bool
	format string
}

func newMonitorCmd(opts *rootOptions) *cobra.Command {
	mo := monitorOptions{format: "json"}
	cmd := &cobra.Command{
		Use:   "monitor [url...]",
		Short: "探测页面的 SEO 健康度与性能，并投递报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mo.format != "json" && mo.format != "csv" {
				return flagError{err: fmt.Errorf("--format 仅支持 json 或 csv: %s", mo.format)}
			}
			env, err := loadEnv(opts.configPath())
			if err != nil {
				return err
			}
			return runMonitor(cmd.Context(), env, args, mo)
		},
	}
	cmd.Flags().BoolVar(&mo.once, "once", false, "探测一轮并输出报告后退出")
	cmd.Flags().StringVar(&mo.format, "format", mo.format, "--once 时的报告输出格式：json 或 csv")
	return cmd
}

// runMonitor 未指定 url 时探测站点首页；非 --once 模式按 ReportInterval 循环。
func runMonitor(ctx context.Context, env *cliEnv, urls []string, opts monitorOptions) error {
	cfg := env.cfg
	if len(urls) == 0 {
		urls = []string{strings.TrimSuffix(cfg.Site.URL, "/") + "/"}
	}

	client := server.NewUpstreamClient(cfg)
	sender := metrics.NewHTTPSender(client, cfg.Metrics.Endpoint)
	notifier := metrics.NewCriticalNotifier(sender, cfg.Global.UpstreamTimeout.DurationValue(), env.logger)
	defer notifier.Wait()

	collector := newCollector(env, notifier.Notify)
	tracker := metrics.NewTracker(collector)
	probe := metrics.NewProbe(client, collector, cfg.Metrics.ProbeConcurrency, env.logger)
	reporter := metrics.NewReporter(tracker, sender, cfg.Metrics.ReportInterval.DurationValue(), env.logger)

	if opts.once {
		sessions := probeAll(ctx, env.logger, probe, tracker, urls)
		if sessions == 0 {
			return fmt.Errorf("全部页面探测失败")
		}
		if err := writeReports(stdOut, tracker.Reports(time.Now()), opts.format); err != nil {
			return err
		}
		reporter.Flush(ctx)
		return nil
	}

	interval := cfg.Metrics.ReportInterval.DurationValue()
	for {
		probeAll(ctx, env.logger, probe, tracker, urls)
		reporter.Flush(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// probeAll 依次探测每个 url 并登记会话，返回成功数。
func probeAll(ctx context.Context, logger *logrus.Logger, probe *metrics.Probe, tracker *metrics.Tracker, urls []string) int {
	ok := 0
	for _, target := range urls {
		if ctx.Err() != nil {
			break
		}
		session, err := probe.Run(ctx, target)
		if err != nil {
			logger.WithField("url", target).WithError(err).Warn("probe_failed")
			continue
		}
		session.Ended = true
		tracker.Add(session)
		ok++
	}
	return ok
}

func writeReports(w io.Writer, reports []metrics.Report, format string) error {
	for _, report := range reports {
		var (
			raw []byte
			err error
		)
		if format == "csv" {
			raw, err = metrics.ExportCSV(report)
		} else {
			raw, err = metrics.ExportJSON(report)
		}
		if err != nil {
			return fmt.Errorf("导出报告失败: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
		if format != "csv" {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
