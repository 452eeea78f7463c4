package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/leaftok/leaftok-site/internal/cache"
	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/server"
	"github.com/leaftok/leaftok-site/internal/strategy"
)

// ErrNoMatch 表示回源失败且缓存中没有可用副本。
var ErrNoMatch = errors.New("no cached response available")

const (
	headerStrategy = "X-Leaftok-Strategy"
	headerRule     = "X-Leaftok-Rule"
	headerCacheHit = "X-Leaftok-Cache-Hit"
	headerOffline  = "X-Leaftok-Offline"
)

// HandlerOptions 汇总 Handler 的依赖。
type HandlerOptions struct {
	Origin     Origin
	Generation cache.Generation
	Rules      strategy.Table
	// OfflineFallback 是 HTML 请求彻底失败时返回的缓存文档键。
	OfflineFallback string
	// SiteHosts 列出属于本站的主机名；绝对形式请求行指向这些主机时按站内路径处理。
	// localhost 与回环地址始终视为本站。
	SiteHosts []string
	Logger    *logrus.Logger
}

// Handler 按规则表为每个 GET 请求选择缓存策略并执行，
// 对外暴露 Fiber handler，同时提供与 Fiber 无关的 Serve 供测试与探测复用。
type Handler struct {
	origin  Origin
	gen     cache.Generation
	rules   strategy.Table
	offline string
	hosts   map[string]struct{}
	logger  *logrus.Logger

	refresh singleflight.Group
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Result 描述一次路由结果。
type Result struct {
	Response *Response
	Decision strategy.Decision
	CacheHit bool
	Offline  bool
}

// NewHandler constructs a cache router with its own background context for revalidation.
func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Origin == nil {
		return nil, errors.New("origin is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscard()
	}
	offline := opts.OfflineFallback
	if offline == "" {
		offline = "/index.html"
	}
	hosts := map[string]struct{}{"localhost": {}}
	for _, host := range opts.SiteHosts {
		if name := hostName(host); name != "" {
			hosts[name] = struct{}{}
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		origin:  opts.Origin,
		gen:     opts.Generation,
		rules:   opts.Rules,
		offline: offline,
		hosts:   hosts,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Rules 返回当前规则表，供诊断接口输出。
func (h *Handler) Rules() strategy.Table {
	return h.rules
}

// Wait 阻塞直到所有后台刷新完成。
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Close 取消仍在进行的后台刷新并等待其退出。
func (h *Handler) Close() {
	h.cancel()
	h.wg.Wait()
}

// Serve 执行策略选择与缓存读写，返回缓冲后的响应。
func (h *Handler) Serve(ctx context.Context, req *Request) (*Result, error) {
	if req.Method != "" && req.Method != http.MethodGet {
		resp, err := h.origin.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Result{Response: resp, Decision: strategy.Decision{Rule: "bypass", Policy: strategy.NetworkFirst}}, nil
	}

	decision := h.rules.Select(strategy.Request{
		Method: http.MethodGet,
		URL:    req.URL,
		Path:   req.Path,
		Accept: req.Header.Get("Accept"),
	})
	profile, ok := strategy.Resolve(string(decision.Policy))
	if !ok {
		return nil, fmt.Errorf("policy %s not registered", decision.Policy)
	}

	var (
		result *Result
		err    error
	)
	switch {
	case profile.BackgroundRefresh:
		result, err = h.staleWhileRevalidate(ctx, req, profile)
	case profile.CacheFirst:
		result, err = h.cacheFirst(ctx, req, profile)
	default:
		result, err = h.networkFirst(ctx, req, profile)
	}
	if result != nil {
		result.Decision = decision
	}
	return result, err
}

func (h *Handler) networkFirst(ctx context.Context, req *Request, profile strategy.Profile) (*Result, error) {
	resp, fetchErr := h.origin.Fetch(ctx, req)
	if fetchErr == nil {
		h.store(ctx, profile.WriteStore, req.Key(), resp)
		return &Result{Response: resp}, nil
	}

	if cached := h.match(ctx, req.Key()); cached != nil {
		return &Result{Response: cached, CacheHit: true}, nil
	}
	if profile.OfflineFallback && req.AcceptsHTML() {
		if cached := h.match(ctx, h.offline); cached != nil {
			return &Result{Response: cached, CacheHit: true, Offline: true}, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrNoMatch, fetchErr)
}

func (h *Handler) cacheFirst(ctx context.Context, req *Request, profile strategy.Profile) (*Result, error) {
	if cached := h.match(ctx, req.Key()); cached != nil {
		return &Result{Response: cached, CacheHit: true}, nil
	}
	resp, err := h.origin.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	h.store(ctx, profile.WriteStore, req.Key(), resp)
	return &Result{Response: resp}, nil
}

func (h *Handler) staleWhileRevalidate(ctx context.Context, req *Request, profile strategy.Profile) (*Result, error) {
	key := req.Key()
	if cached := h.match(ctx, key); cached != nil {
		h.revalidate(req, profile)
		return &Result{Response: cached, CacheHit: true}, nil
	}

	// 回源与写缓存在受 wg 跟踪的协程中完成，Close 会等待其结束。
	ch := make(chan singleflight.Result, 1)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		val, err, shared := h.refresh.Do(key, h.refreshFunc(req, profile))
		ch <- singleflight.Result{Val: val, Err: err, Shared: shared}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &Result{Response: res.Val.(*Response)}, nil
	}
}

// revalidate 在后台刷新缓存，同一 key 的并发刷新只会回源一次。
func (h *Handler) revalidate(req *Request, profile strategy.Profile) {
	if h.ctx.Err() != nil {
		return
	}
	clone := *req
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err, _ := h.refresh.Do(clone.Key(), h.refreshFunc(&clone, profile)); err != nil {
			h.logger.WithError(err).WithFields(logging.CacheFields("revalidate", h.gen.StoreName(profile.WriteStore), clone.Key())).
				Warn("cache_revalidate_failed")
		}
	}()
}

func (h *Handler) refreshFunc(req *Request, profile strategy.Profile) func() (interface{}, error) {
	return func() (interface{}, error) {
		resp, err := h.origin.Fetch(h.ctx, req)
		if err != nil {
			return nil, err
		}
		h.store(h.ctx, profile.WriteStore, req.Key(), resp)
		return resp, nil
	}
}

func (h *Handler) match(ctx context.Context, key string) *Response {
	if !h.gen.Enabled() {
		return nil
	}
	result, err := h.gen.Match(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			h.logger.WithError(err).WithFields(logging.CacheFields("match", "", key)).Warn("cache_get_failed")
		}
		return nil
	}
	body, err := result.ReadAll()
	if err != nil {
		h.logger.WithError(err).WithFields(logging.CacheFields("match", result.Entry.Locator.Store, key)).Warn("cache_read_failed")
		return nil
	}
	header := result.Entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &Response{Status: result.Entry.Status, Header: header, Body: body}
}

func (h *Handler) store(ctx context.Context, role strategy.StoreRole, key string, resp *Response) {
	if !h.gen.Enabled() || !isCacheableStatus(resp.Status) {
		return
	}
	if _, err := h.gen.Write(ctx, role, key, resp.Status, resp.Header, resp.Body); err != nil {
		h.logger.WithError(err).WithFields(logging.CacheFields("store", h.gen.StoreName(role), key)).Warn("cache_write_failed")
	}
}

// Handle 实现 server.ProxyHandler：转换 Fiber 请求、执行 Serve 并输出结构化日志。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)
	req := h.requestFromFiber(c)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := h.Serve(ctx, req)
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	if err != nil {
		h.logResult(req, strategy.Decision{}, requestID, 0, false, started, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}

	for key, values := range result.Response.Header {
		if server.IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
	c.Set(headerStrategy, string(result.Decision.Policy))
	c.Set(headerRule, result.Decision.Rule)
	c.Set(headerCacheHit, strconv.FormatBool(result.CacheHit))
	if result.Offline {
		c.Set(headerOffline, "true")
	}

	h.logResult(req, result.Decision, requestID, result.Response.Status, result.CacheHit, started, nil)
	return c.Status(result.Response.Status).Send(result.Response.Body)
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(
	req *Request,
	decision strategy.Decision,
	requestID string,
	status int,
	cacheHit bool,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(req.Method, req.Key(), decision.Rule, string(decision.Policy), cacheHit)
	fields["action"] = "cache_route"
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("route_failed")
		return
	}
	h.logger.WithFields(fields).Info("route_complete")
}

// requestFromFiber 把 Fiber 请求转换为 Request。
// 绝对形式的请求行只有在主机不属于本站时才保留为跨域 URL，站内请求统一以 path(+?query) 为键。
func (h *Handler) requestFromFiber(c fiber.Ctx) *Request {
	uri := c.Request().URI()
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	pathVal := string(uri.Path())
	if pathVal == "" {
		pathVal = "/"
	}
	query := string(uri.QueryString())
	rawURL := pathVal
	if query != "" {
		rawURL += "?" + query
	}
	if original := c.OriginalURL(); isAbsoluteURL(original) && !h.isSiteHost(string(uri.Host())) {
		rawURL = original
	}
	return &Request{
		Method: c.Method(),
		URL:    rawURL,
		Path:   pathVal,
		Query:  query,
		Header: header,
		Body:   append([]byte(nil), c.Body()...),
	}
}

func (h *Handler) isSiteHost(host string) bool {
	name := hostName(host)
	if name == "" {
		return true
	}
	if _, ok := h.hosts[name]; ok {
		return true
	}
	if ip := net.ParseIP(name); ip != nil && ip.IsLoopback() {
		return true
	}
	return false
}

// hostName 去掉端口并转为小写，接受 host、host:port 或完整 URL。
func hostName(host string) string {
	host = strings.TrimSpace(host)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if name, _, err := net.SplitHostPort(host); err == nil {
		host = name
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

func isCacheableStatus(status int) bool {
	return status >= 200 && status < 300
}
