package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/version"
)

// maxPageBytes 限制单页读取量。
const maxPageBytes = 8 << 20

// Probe 在服务端抓取页面并生成与浏览器上报同构的会话。
type Probe struct {
	client      *http.Client
	collector   *Collector
	concurrency int
	logger      *logrus.Entry
}

// NewProbe concurrency 限制资源 HEAD 请求的并发数。
func NewProbe(client *http.Client, collector *Collector, concurrency int, logger *logrus.Logger) *Probe {
	if client == nil {
		client = http.DefaultClient
	}
	if collector == nil {
		collector = NewCollector(nil)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Probe{
		client:      client,
		collector:   collector,
		concurrency: concurrency,
		logger:      logging.Component(logger, "probe"),
	}
}

// Run 抓取 pageURL：记录近似 TTFB 与 LCP，执行健康检查并分析引用资源。
func (p *Probe) Run(ctx context.Context, pageURL string) (*Session, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %s: %w", pageURL, err)
	}

	var (
		mu        sync.Mutex
		wroteReq  time.Time
		firstByte time.Time
	)
	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) {
			mu.Lock()
			wroteReq = time.Now()
			mu.Unlock()
		},
		GotFirstResponseByte: func() {
			mu.Lock()
			firstByte = time.Now()
			mu.Unlock()
		},
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}
	loaded := time.Now()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	s := NewSession("", pageURL, req.Header.Get("User-Agent"), Viewport{}, start)
	mu.Lock()
	wrote, first := wroteReq, firstByte
	mu.Unlock()
	if wrote.IsZero() {
		wrote = start
	}
	if first.IsZero() {
		first = loaded
	}
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	p.collector.RecordNavigation(s, NavigationTiming{
		FetchStart:                 0,
		RequestStart:               ms(wrote.Sub(start)),
		ResponseStart:              ms(first.Sub(start)),
		DOMInteractive:             ms(loaded.Sub(start)),
		DOMContentLoadedEventStart: ms(loaded.Sub(start)),
		DOMContentLoadedEventEnd:   ms(loaded.Sub(start)),
		LoadEventStart:             0,
		LoadEventEnd:               ms(loaded.Sub(start)),
	})

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	health := CheckHealth(doc, resp.Request.URL.String())
	s.Health = &health

	resources := p.fetchResources(ctx, ResourceURLs(doc, base))
	p.collector.AnalyzeResources(s, resources)
	p.collector.UpdateTimeOnPage(s, loaded)

	p.logger.WithFields(logrus.Fields{
		"url":       pageURL,
		"seo_score": health.Score,
		"resources": len(resources),
		"ttfb_ms":   s.Vitals[VitalTTFB].Value,
	}).Info("page_probed")
	return s, nil
}

// ResourceURLs 收集同一页面引用的图片、脚本与样式表，去重并保持出现顺序。
func ResourceURLs(doc *html.Node, base *url.URL) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "data:") {
			return
		}
		u, err := base.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		abs := u.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img, atom.Script:
				add(attr(n, "src"))
			case atom.Link:
				if hasToken(attr(n, "rel"), "stylesheet") || hasToken(attr(n, "rel"), "icon") {
					add(attr(n, "href"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// fetchResources 并发 HEAD 每个资源；失败的资源 TransferSize 记为 -1。
func (p *Probe) fetchResources(ctx context.Context, urls []string) []ResourceTiming {
	origin := time.Now()
	results := make([]ResourceTiming, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, target := range urls {
		g.Go(func() error {
			started := time.Since(origin)
			size, err := p.head(gctx, target)
			ended := time.Since(origin)
			timing := ResourceTiming{
				Name:         target,
				StartTime:    float64(started.Microseconds()) / 1000,
				ResponseEnd:  float64(ended.Microseconds()) / 1000,
				TransferSize: size,
			}
			if err != nil {
				timing.TransferSize = -1
				p.logger.WithField("resource", target).WithError(err).Debug("resource_probe_failed")
			}
			mu.Lock()
			results[i] = timing
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Probe) head(ctx context.Context, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}
