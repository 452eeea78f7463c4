package proxy

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leaftok/leaftok-site/internal/cache"
	"github.com/leaftok/leaftok-site/internal/config"
)

// fakeOrigin 返回预设响应并统计调用次数。
type fakeOrigin struct {
	mu    sync.Mutex
	pages map[string]string
	fail  bool
	calls atomic.Int32
	hold  chan struct{}
}

func newFakeOrigin(pages map[string]string) *fakeOrigin {
	return &fakeOrigin{pages: pages}
}

func (o *fakeOrigin) Fetch(ctx context.Context, req *Request) (*Response, error) {
	o.calls.Add(1)
	if o.hold != nil {
		select {
		case <-o.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return nil, ErrUpstream
	}
	body, ok := o.pages[req.Key()]
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	if !ok {
		return &Response{Status: http.StatusNotFound, Header: header, Body: []byte("missing")}, nil
	}
	return &Response{Status: http.StatusOK, Header: header, Body: []byte(body)}, nil
}

func (o *fakeOrigin) set(key, body string) {
	o.mu.Lock()
	o.pages[key] = body
	o.mu.Unlock()
}

func (o *fakeOrigin) setFail(fail bool) {
	o.mu.Lock()
	o.fail = fail
	o.mu.Unlock()
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Name:                 "leaftok",
		Version:              "1.0.0",
		OfflineFallback:      "/index.html",
		PrecacheAssets:       []string{"/", "/index.html", "/assets/logo.png"},
		NetworkFirstPrefixes: config.DefaultNetworkFirstPrefixes,
		CacheFirstPrefixes:   config.DefaultCacheFirstPrefixes,
		CacheFirstExtensions: config.DefaultCacheFirstExtensions,
		HTMLPolicy:           "stale-while-revalidate",
		FallbackPolicy:       "network-first",
	}
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func newTestHandler(t *testing.T, origin Origin, store cache.Store) *Handler {
	t.Helper()
	cfg := testCacheConfig()
	table, err := cfg.BuildRuleTable()
	if err != nil {
		t.Fatalf("build rules: %v", err)
	}
	h, err := NewHandler(HandlerOptions{
		Origin:          origin,
		Generation:      cache.NewGeneration(store, cfg.StaticStoreName(), cfg.DynamicStoreName()),
		Rules:           table,
		OfflineFallback: cfg.OfflineFallback,
		SiteHosts:       []string{"https://leaftok.app", "leaftok.local:5000"},
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func getRequest(path, accept string) *Request {
	header := http.Header{}
	if accept != "" {
		header.Set("Accept", accept)
	}
	return &Request{Method: http.MethodGet, URL: path, Path: path, Header: header}
}

func seed(t *testing.T, store cache.Store, storeName, key, body string) {
	t.Helper()
	gen := cache.NewGeneration(store, storeName, storeName)
	if _, err := gen.Write(context.Background(), "static", key, http.StatusOK, http.Header{"Content-Type": []string{"text/html"}}, []byte(body)); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}
