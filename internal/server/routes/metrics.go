package routes

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/metrics"
	"github.com/leaftok/leaftok-site/internal/reportstore"
	"github.com/leaftok/leaftok-site/internal/server"
)

// ReportStore 是指标端点依赖的存储能力。
type ReportStore interface {
	SaveReport(ctx context.Context, report metrics.Report) (int64, error)
	SaveCritical(ctx context.Context, alert metrics.CriticalReport) (int64, error)
	ListReports(ctx context.Context, limit int) ([]reportstore.StoredReport, error)
	ListCritical(ctx context.Context, limit int) ([]reportstore.StoredCritical, error)
}

// MetricsOptions 配置指标接收端点；Tracker 为空时不注册事件接口。
type MetricsOptions struct {
	Store   ReportStore
	Tracker *metrics.Tracker
	Logger  *logrus.Logger
}

// RegisterMetricsRoutes 注册报告接收、即时告警、浏览器事件与报告查询接口。
func RegisterMetricsRoutes(app *fiber.App, opts MetricsOptions) {
	if app == nil {
		return
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscard()
	}
	logger := logging.Component(opts.Logger, "metrics_api")

	if opts.Store != nil {
		app.Post("/api/seo-metrics", func(c fiber.Ctx) error {
			var report metrics.Report
			if err := json.Unmarshal(c.Body(), &report); err != nil {
				return server.WriteError(c, fiber.StatusBadRequest, "invalid_json")
			}
			id, err := opts.Store.SaveReport(c.Context(), report)
			if err != nil {
				return storeError(c, logger, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id})
		})

		app.Post("/api/seo-metrics/critical", func(c fiber.Ctx) error {
			var alert metrics.CriticalReport
			if err := json.Unmarshal(c.Body(), &alert); err != nil {
				return server.WriteError(c, fiber.StatusBadRequest, "invalid_json")
			}
			logger.WithFields(logging.MetricFields(alert.SessionID, alert.Metric, alert.Value, string(alert.Rating))).
				WithFields(logrus.Fields{"url": alert.URL, "request_id": server.RequestID(c)}).
				Warn("critical_metric_received")
			id, err := opts.Store.SaveCritical(c.Context(), alert)
			if err != nil {
				return storeError(c, logger, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id})
		})

		app.Get("/-/reports", func(c fiber.Ctx) error {
			reports, err := opts.Store.ListReports(c.Context(), queryLimit(c))
			if err != nil {
				return storeError(c, logger, err)
			}
			return c.JSON(fiber.Map{"reports": reports})
		})

		app.Get("/-/reports/critical", func(c fiber.Ctx) error {
			alerts, err := opts.Store.ListCritical(c.Context(), queryLimit(c))
			if err != nil {
				return storeError(c, logger, err)
			}
			return c.JSON(fiber.Map{"alerts": alerts})
		})
	}

	if opts.Tracker != nil {
		app.Post("/api/seo-metrics/events", func(c fiber.Ctx) error {
			var ev metrics.Event
			if err := json.Unmarshal(c.Body(), &ev); err != nil {
				return server.WriteError(c, fiber.StatusBadRequest, "invalid_json")
			}
			if err := opts.Tracker.Apply(ev); err != nil {
				if errors.Is(err, metrics.ErrUnknownEvent) || errors.Is(err, metrics.ErrInvalidEvent) {
					return server.WriteError(c, fiber.StatusBadRequest, "invalid_event")
				}
				return server.WriteError(c, fiber.StatusInternalServerError, "event_failed")
			}
			return c.SendStatus(fiber.StatusNoContent)
		})
	}
}

func storeError(c fiber.Ctx, logger *logrus.Entry, err error) error {
	if errors.Is(err, reportstore.ErrInvalidReport) {
		return server.WriteError(c, fiber.StatusUnprocessableEntity, "invalid_report")
	}
	logger.WithError(err).WithField("request_id", server.RequestID(c)).Error("report_store_failed")
	return server.WriteError(c, fiber.StatusInternalServerError, "store_failed")
}

// queryLimit 解析 ?limit=N，非法值交给存储层的默认值处理。
func queryLimit(c fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
