package reportstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/metrics"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DefaultListLimit 是 List 未指定数量时的返回上限。
const DefaultListLimit = 50

// MaxListLimit 限制单次查询的行数。
const MaxListLimit = 500

// ErrInvalidReport 表示报告缺少必需字段。
var ErrInvalidReport = errors.New("invalid report")

// Store 是报告存储，*sql.DB 自带连接池，可并发使用。
type Store struct {
	db     *sql.DB
	logger *logrus.Entry
	now    func() time.Time
}

// StoredReport 是落库后的报告。
type StoredReport struct {
	ID         int64          `json:"id"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Report     metrics.Report `json:"report"`
}

// StoredCritical 是落库后的即时告警。
type StoredCritical struct {
	ID         int64                  `json:"id"`
	ReceivedAt time.Time              `json:"receivedAt"`
	Alert      metrics.CriticalReport `json:"alert"`
}

// Open 打开（必要时创建）数据库文件并执行迁移。
func Open(ctx context.Context, path string, logger *logrus.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("report store requires a database path")
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{
		db:     db,
		logger: logging.Component(logger, "reportstore"),
		now:    time.Now,
	}
	store.logger.WithField("path", path).Debug("report_store_opened")
	return store, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport 写入一份报告并返回行号。
func (s *Store) SaveReport(ctx context.Context, report metrics.Report) (int64, error) {
	if report.URL == "" {
		return 0, fmt.Errorf("%w: url is required", ErrInvalidReport)
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (session_id, url, seo_score, reported_at, received_at, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		report.SessionID, report.URL, report.Metrics.SEOScore, report.Timestamp, s.now().UnixMilli(), string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"id":         id,
		"session_id": report.SessionID,
		"url":        report.URL,
		"seo_score":  report.Metrics.SEOScore,
	}).Debug("report_stored")
	return id, nil
}

// SaveCritical 写入一条即时告警。
func (s *Store) SaveCritical(ctx context.Context, alert metrics.CriticalReport) (int64, error) {
	if alert.Metric == "" {
		return 0, fmt.Errorf("%w: metric is required", ErrInvalidReport)
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return 0, fmt.Errorf("encode alert: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO critical_alerts (session_id, metric, value, rating, url, reported_at, received_at, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.SessionID, alert.Metric, alert.Value, string(alert.Rating), alert.URL, alert.Timestamp, s.now().UnixMilli(), string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	return res.LastInsertId()
}

// ListReports 按接收时间倒序返回最近的报告。
func (s *Store) ListReports(ctx context.Context, limit int) ([]StoredReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, received_at, payload FROM reports ORDER BY received_at DESC, id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	out := make([]StoredReport, 0)
	for rows.Next() {
		var (
			item     StoredReport
			received int64
			payload  string
		)
		if err := rows.Scan(&item.ID, &received, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &item.Report); err != nil {
			return nil, fmt.Errorf("decode report %d: %w", item.ID, err)
		}
		item.ReceivedAt = time.UnixMilli(received).UTC()
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListCritical 按接收时间倒序返回最近的告警。
func (s *Store) ListCritical(ctx context.Context, limit int) ([]StoredCritical, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, received_at, payload FROM critical_alerts ORDER BY received_at DESC, id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]StoredCritical, 0)
	for rows.Next() {
		var (
			item     StoredCritical
			received int64
			payload  string
		)
		if err := rows.Scan(&item.ID, &received, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &item.Alert); err != nil {
			return nil, fmt.Errorf("decode alert %d: %w", item.ID, err)
		}
		item.ReceivedAt = time.UnixMilli(received).UTC()
		out = append(out, item)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
