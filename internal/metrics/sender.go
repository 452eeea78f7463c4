package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leaftok/leaftok-site/internal/logging"
)

// ErrDelivery 表示端点返回了非 2xx 状态。
var ErrDelivery = errors.New("metrics delivery failed")

// Sender 投递周期报告与即时告警。
type Sender interface {
	SendReport(ctx context.Context, report Report) error
	SendCritical(ctx context.Context, report CriticalReport) error
}

// HTTPSender 以 JSON POST 到 Endpoint 与 Endpoint/critical。
type HTTPSender struct {
	client   *http.Client
	endpoint string
}

// NewHTTPSender client 为 nil 时使用 http.DefaultClient。
func NewHTTPSender(client *http.Client, endpoint string) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{client: client, endpoint: strings.TrimSuffix(endpoint, "/")}
}

// Endpoint 返回报告地址。
func (s *HTTPSender) Endpoint() string {
	return s.endpoint
}

func (s *HTTPSender) SendReport(ctx context.Context, report Report) error {
	return s.post(ctx, s.endpoint, report)
}

func (s *HTTPSender) SendCritical(ctx context.Context, report CriticalReport) error {
	return s.post(ctx, s.endpoint+"/critical", report)
}

func (s *HTTPSender) post(ctx context.Context, target string, payload any) error {
	if s.endpoint == "" {
		return fmt.Errorf("%w: endpoint not configured", ErrDelivery)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrDelivery, target, resp.StatusCode)
	}
	return nil
}

// CriticalNotifier 在独立 goroutine 中投递告警，失败只记录日志。
type CriticalNotifier struct {
	sender  Sender
	logger  *logrus.Entry
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewCriticalNotifier 创建告警投递器。
func NewCriticalNotifier(sender Sender, timeout time.Duration, logger *logrus.Logger) *CriticalNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &CriticalNotifier{sender: sender, timeout: timeout, logger: logging.Component(logger, "metrics")}
}

// Notify 满足 CriticalSink。
func (n *CriticalNotifier) Notify(report CriticalReport) {
	fields := logging.MetricFields(report.SessionID, report.Metric, report.Value, string(report.Rating))
	n.logger.WithFields(fields).Warn("critical_metric")
	if n.sender == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.sender.SendCritical(ctx, report); err != nil {
			n.logger.WithFields(fields).WithError(err).Warn("critical_metric_delivery_failed")
		}
	}()
}

// Wait 等待已发出的告警完成。
func (n *CriticalNotifier) Wait() {
	n.wg.Wait()
}
