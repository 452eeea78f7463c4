package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leaftok/leaftok-site/internal/logging"
)

// DefaultReportInterval 是周期报告的默认间隔。
const DefaultReportInterval = 24 * time.Hour

// Reporter 周期性地把 Tracker 中的会话整理为报告并投递。
type Reporter struct {
	tracker  *Tracker
	sender   Sender
	interval time.Duration
	logger   *logrus.Entry
	now      func() time.Time
}

// NewReporter interval 不为正时使用 24h。
func NewReporter(tracker *Tracker, sender Sender, interval time.Duration, logger *logrus.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Reporter{
		tracker:  tracker,
		sender:   sender,
		interval: interval,
		logger:   logging.Component(logger, "metrics_reporter"),
		now:      time.Now,
	}
}

// Run 每个周期调用一次 Flush，直到 ctx 结束。
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Flush 投递全部会话的报告；失败的会话保留到下个周期。
func (r *Reporter) Flush(ctx context.Context) (delivered, failed int) {
	now := r.now()
	reports := r.tracker.Reports(now)
	ok := make([]string, 0, len(reports))
	for _, report := range reports {
		if err := r.sender.SendReport(ctx, report); err != nil {
			failed++
			r.logger.WithFields(logrus.Fields{
				"session": report.SessionID,
				"url":     report.URL,
			}).WithError(err).Warn("report_delivery_failed")
			continue
		}
		delivered++
		ok = append(ok, report.SessionID)
	}
	released := r.tracker.Release(ok, now)
	r.logger.WithFields(logrus.Fields{
		"action":    "report",
		"delivered": delivered,
		"failed":    failed,
		"released":  released,
	}).Info("reports_flushed")
	return delivered, failed
}
