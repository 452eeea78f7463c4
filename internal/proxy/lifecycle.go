package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/leaftok/leaftok-site/internal/cache"
	"github.com/leaftok/leaftok-site/internal/config"
	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/strategy"
)

// State 是缓存路由器的生命周期阶段。
type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
)

// 支持的消息类型。
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageGetVersion  = "GET_VERSION"
)

// ErrUnknownMessage 表示消息类型不受支持。
var ErrUnknownMessage = errors.New("unknown message type")

const precacheConcurrency = 4

// Message 是 POST /-/sw/message 的请求体。
type Message struct {
	Type string `json:"type"`
}

// Reply 是消息的应答；GET_VERSION 填充 Version。
type Reply struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
}

// Status 是 GET /-/sw/status 的快照。
type Status struct {
	Version     string    `json:"version"`
	State       State     `json:"state"`
	SkipWaiting bool      `json:"skip_waiting"`
	Controlling bool      `json:"controlling"`
	LiveStores  []string  `json:"live_stores"`
	Stores      []string  `json:"stores"`
	InstalledAt time.Time `json:"installed_at,omitempty"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`
	LastSweep   time.Time `json:"last_sweep,omitempty"`
}

// Lifecycle 管理预缓存安装、旧分区清理、周期清扫以及消息通道。
type Lifecycle struct {
	cfg    config.CacheConfig
	store  cache.Store
	gen    cache.Generation
	origin Origin
	logger *logrus.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	skipWaiting bool
	controlling bool
	installedAt time.Time
	activatedAt time.Time
	lastSweep   time.Time
}

// NewLifecycle 绑定当前版本的缓存配置与回源。
func NewLifecycle(cfg config.CacheConfig, store cache.Store, origin Origin, logger *logrus.Logger) *Lifecycle {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Lifecycle{
		cfg:    cfg,
		store:  store,
		gen:    cache.NewGeneration(store, cfg.StaticStoreName(), cfg.DynamicStoreName()),
		origin: origin,
		logger: logger,
		now:    time.Now,
		state:  StateNew,
	}
}

// Generation 返回当前版本的分区视图，供 Handler 共用。
func (l *Lifecycle) Generation() cache.Generation {
	return l.gen
}

// Install 将 PrecacheAssets 拉取到静态分区；单个资源失败不影响其他资源，错误合并返回。
// 安装结束后立即跳过等待。
func (l *Lifecycle) Install(ctx context.Context) error {
	l.setState(StateInstalling)

	assets := l.cfg.PrecacheAssets
	errs := make([]error, len(assets))
	var g errgroup.Group
	g.SetLimit(precacheConcurrency)
	for i, asset := range assets {
		g.Go(func() error {
			errs[i] = l.precache(ctx, asset)
			return nil
		})
	}
	_ = g.Wait()

	l.mu.Lock()
	l.state = StateInstalled
	l.skipWaiting = true
	l.installedAt = l.now()
	l.mu.Unlock()

	err := errors.Join(errs...)
	fields := logrus.Fields{"action": "install", "store": l.gen.StoreName(strategy.StoreStatic), "assets": len(assets)}
	if err != nil {
		l.logger.WithFields(fields).WithError(err).Warn("precache_incomplete")
		return err
	}
	l.logger.WithFields(fields).Info("precache_complete")
	return nil
}

func (l *Lifecycle) precache(ctx context.Context, asset string) error {
	req, err := assetRequest(asset)
	if err != nil {
		return err
	}
	resp, err := l.origin.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("precache %s: %w", asset, err)
	}
	if !isCacheableStatus(resp.Status) {
		return fmt.Errorf("precache %s: unexpected status %d", asset, resp.Status)
	}
	if _, err := l.gen.Write(ctx, strategy.StoreStatic, req.Key(), resp.Status, resp.Header, resp.Body); err != nil {
		return fmt.Errorf("precache %s: %w", asset, err)
	}
	return nil
}

// Activate 删除所有非当前版本的分区并立即接管。
func (l *Lifecycle) Activate(ctx context.Context) ([]string, error) {
	l.setState(StateActivating)

	deleted, err := l.deleteStores(ctx, func(name string) bool { return !l.gen.IsLive(name) })

	l.mu.Lock()
	l.state = StateActivated
	l.controlling = true
	l.activatedAt = l.now()
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{"action": "activate", "deleted": deleted}).Info("cache_activated")
	return deleted, err
}

// Sweep 删除以 <Name>- 开头但不属于当前版本的分区。
func (l *Lifecycle) Sweep(ctx context.Context) ([]string, error) {
	prefix := l.cfg.Name + "-"
	deleted, err := l.deleteStores(ctx, func(name string) bool {
		return strings.HasPrefix(name, prefix) && !l.gen.IsLive(name)
	})

	l.mu.Lock()
	l.lastSweep = l.now()
	l.mu.Unlock()

	fields := logrus.Fields{"action": "sweep", "deleted": deleted}
	if err != nil {
		l.logger.WithFields(fields).WithError(err).Error("cache_sweep_failed")
		return deleted, err
	}
	l.logger.WithFields(fields).Info("cache_sweep_complete")
	return deleted, nil
}

// RunSweeper 按 interval 周期执行 Sweep，直到 ctx 结束。
func (l *Lifecycle) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = l.Sweep(ctx)
		}
	}
}

func (l *Lifecycle) deleteStores(ctx context.Context, shouldDelete func(string) bool) ([]string, error) {
	if l.store == nil {
		return nil, cache.ErrStoreUnavailable
	}
	names, err := l.store.Stores(ctx)
	if err != nil {
		return nil, err
	}
	var (
		deleted []string
		errs    []error
	)
	for _, name := range names {
		if !shouldDelete(name) {
			continue
		}
		ok, err := l.store.DeleteStore(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete store %s: %w", name, err))
			continue
		}
		if ok {
			deleted = append(deleted, name)
		}
	}
	return deleted, errors.Join(errs...)
}

// HandleMessage 处理 SKIP_WAITING 与 GET_VERSION。
func (l *Lifecycle) HandleMessage(msg Message) (Reply, error) {
	switch strings.ToUpper(strings.TrimSpace(msg.Type)) {
	case MessageSkipWaiting:
		l.mu.Lock()
		l.skipWaiting = true
		l.mu.Unlock()
		return Reply{OK: true}, nil
	case MessageGetVersion:
		return Reply{OK: true, Version: l.cfg.VersionTag()}, nil
	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// Status 返回生命周期快照，分区列表读取失败时仅记录日志。
func (l *Lifecycle) Status(ctx context.Context) Status {
	var stores []string
	if l.store != nil {
		names, err := l.store.Stores(ctx)
		if err != nil {
			l.logger.WithError(err).WithField("action", "status").Warn("list_stores_failed")
		}
		stores = names
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		Version:     l.cfg.VersionTag(),
		State:       l.state,
		SkipWaiting: l.skipWaiting,
		Controlling: l.controlling,
		LiveStores:  l.gen.LiveStores(),
		Stores:      stores,
		InstalledAt: l.installedAt,
		ActivatedAt: l.activatedAt,
		LastSweep:   l.lastSweep,
	}
}

func (l *Lifecycle) setState(state State) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func assetRequest(asset string) (*Request, error) {
	parsed, err := url.Parse(asset)
	if err != nil {
		return nil, fmt.Errorf("precache %s: %w", asset, err)
	}
	header := http.Header{}
	header.Set("Accept", "*/*")
	return &Request{Method: http.MethodGet, URL: asset, Path: parsed.Path, Query: parsed.RawQuery, Header: header}, nil
}
