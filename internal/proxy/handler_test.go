package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/goleak"

	"github.com/leaftok/leaftok-site/internal/strategy"
)

const (
	staticStore  = "leaftok-static-1.0.0"
	dynamicStore = "leaftok-dynamic-1.0.0"
)

func TestCacheFirstHitNeverTouchesOrigin(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/assets/logo.png": "fresh"})
	h := newTestHandler(t, origin, store)
	seed(t, store, staticStore, "/assets/logo.png", "cached")

	result, err := h.Serve(context.Background(), getRequest("/assets/logo.png", "image/*"))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if result.Decision.Policy != strategy.CacheFirst {
		t.Fatalf("expected cache-first, got %s", result.Decision.Policy)
	}
	if !result.CacheHit || string(result.Response.Body) != "cached" {
		t.Fatalf("expected cached body, got hit=%v body=%s", result.CacheHit, result.Response.Body)
	}
	if origin.calls.Load() != 0 {
		t.Fatalf("origin should not be called on cache-first hit, calls=%d", origin.calls.Load())
	}
}

func TestCacheFirstMissStoresInStatic(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/assets/app.css": "body{}"})
	h := newTestHandler(t, origin, store)

	if _, err := h.Serve(context.Background(), getRequest("/assets/app.css", "")); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	result, err := h.Serve(context.Background(), getRequest("/assets/app.css", ""))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if !result.CacheHit {
		t.Fatalf("second request should be served from cache")
	}
	if origin.calls.Load() != 1 {
		t.Fatalf("expected exactly one origin call, got %d", origin.calls.Load())
	}
}

func TestStaleWhileRevalidateServesStoredThenUpdated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/books/": "v2"})
	h := newTestHandler(t, origin, store)
	seed(t, store, dynamicStore, "/books/", "v1")

	first, err := h.Serve(context.Background(), getRequest("/books/", "text/html"))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if first.Decision.Policy != strategy.StaleWhileRevalidate {
		t.Fatalf("expected swr, got %s", first.Decision.Policy)
	}
	if string(first.Response.Body) != "v1" {
		t.Fatalf("first response must be the stored copy, got %s", first.Response.Body)
	}

	h.Wait()

	second, err := h.Serve(context.Background(), getRequest("/books/", "text/html"))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if string(second.Response.Body) != "v2" {
		t.Fatalf("second response should reflect refreshed content, got %s", second.Response.Body)
	}
	h.Close()
}

func TestStaleWhileRevalidateMissWaitsForNetwork(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/privacy/": "privacy"})
	h := newTestHandler(t, origin, store)

	result, err := h.Serve(context.Background(), getRequest("/privacy/", "text/html"))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if result.CacheHit || string(result.Response.Body) != "privacy" {
		t.Fatalf("miss should wait for network, got hit=%v body=%s", result.CacheHit, result.Response.Body)
	}

	origin.setFail(true)
	if _, err := h.Serve(context.Background(), getRequest("/changelog/", "text/html")); err == nil {
		t.Fatalf("swr miss with failing origin should propagate the error")
	}
}

func TestNetworkFirstFallbacks(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/api/books": `{"ok":true}`})
	h := newTestHandler(t, origin, store)
	ctx := context.Background()

	result, err := h.Serve(ctx, getRequest("/api/books", "application/json"))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if result.Decision.Policy != strategy.NetworkFirst || result.CacheHit {
		t.Fatalf("expected network-first network response, got %+v", result.Decision)
	}

	origin.setFail(true)
	result, err = h.Serve(ctx, getRequest("/api/books", "application/json"))
	if err != nil {
		t.Fatalf("should fall back to cached copy: %v", err)
	}
	if !result.CacheHit || string(result.Response.Body) != `{"ok":true}` {
		t.Fatalf("expected cached api response, got %s", result.Response.Body)
	}

	seed(t, store, staticStore, "/index.html", "offline")
	result, err = h.Serve(ctx, getRequest("/blog/post", "text/html"))
	if err != nil {
		t.Fatalf("html request should get offline document: %v", err)
	}
	if !result.Offline || string(result.Response.Body) != "offline" {
		t.Fatalf("expected offline document, got %s", result.Response.Body)
	}

	if _, err := h.Serve(ctx, getRequest("/api/other", "application/json")); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestNetworkFirstDoesNotStoreErrors(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{})
	h := newTestHandler(t, origin, store)

	result, err := h.Serve(context.Background(), getRequest("/api/missing", ""))
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if result.Response.Status != http.StatusNotFound {
		t.Fatalf("404 should be passed through, got %d", result.Response.Status)
	}
	if _, err := store.Match(context.Background(), "/api/missing"); err == nil {
		t.Fatalf("non-2xx responses must not be stored")
	}
}

func TestNonGetBypassesCache(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/api/seo": "ok"})
	h := newTestHandler(t, origin, store)

	req := getRequest("/api/seo", "")
	req.Method = http.MethodPost
	result, err := h.Serve(context.Background(), req)
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if result.Decision.Rule != "bypass" {
		t.Fatalf("expected bypass rule, got %s", result.Decision.Rule)
	}
	names, _ := store.Stores(context.Background())
	if len(names) != 0 {
		t.Fatalf("POST must not create stores, got %v", names)
	}
}

func TestHandleSetsStrategyHeaders(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/": "home"})
	h := newTestHandler(t, origin, store)

	app := fiber.New()
	app.All("/*", h.Handle)

	req := httptest.NewRequest(http.MethodGet, "http://leaftok.local/", nil)
	req.Header.Set("Accept", "text/html")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "home" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get(headerStrategy); got != string(strategy.StaleWhileRevalidate) {
		t.Fatalf("unexpected strategy header %q", got)
	}
	if got := resp.Header.Get(headerCacheHit); got != "false" {
		t.Fatalf("unexpected cache hit header %q", got)
	}
}

func TestHandleReturnsBadGatewayWhenNothingCached(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{})
	origin.setFail(true)
	h := newTestHandler(t, origin, store)

	app := fiber.New()
	app.All("/*", h.Handle)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "http://leaftok.local/api/books", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "upstream_failed") {
		t.Fatalf("expected upstream_failed body, got %s", body)
	}
}

func TestHandleAbsoluteFormSiteRequestUsesPathKey(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/books/?page=2": "books"})
	h := newTestHandler(t, origin, store)

	app := fiber.New()
	app.All("/*", h.Handle)

	send := func(target string) (*http.Response, string) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Accept", "text/html")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test %s failed: %v", target, err)
		}
		body, _ := io.ReadAll(resp.Body)
		return resp, string(body)
	}

	resp, body := send("http://leaftok.local/books/?page=2")
	if resp.StatusCode != http.StatusOK || body != "books" {
		t.Fatalf("absolute form: unexpected response %d %s", resp.StatusCode, body)
	}
	h.Wait()
	if _, err := store.Match(context.Background(), "/books/?page=2"); err != nil {
		t.Fatalf("absolute form should be stored under the path key: %v", err)
	}

	resp, body = send("/books/?page=2")
	if resp.StatusCode != http.StatusOK || body != "books" {
		t.Fatalf("relative form: unexpected response %d %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get(headerCacheHit); got != "true" {
		t.Fatalf("relative form should hit the entry stored by the absolute form, got %q", got)
	}
}

func TestHandleKeepsCrossOriginURL(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"https://apps.apple.com/app": "store"})
	h := newTestHandler(t, origin, store)

	app := fiber.New()
	app.All("/*", h.Handle)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "https://apps.apple.com/app", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "store" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get(headerStrategy); got != string(strategy.NetworkFirst) {
		t.Fatalf("cross-origin request should be network-first, got %q", got)
	}
}

func TestHostName(t *testing.T) {
	cases := map[string]string{
		"leaftok.app":              "leaftok.app",
		"LeafTok.app:443":          "leaftok.app",
		"https://leaftok.app/":     "leaftok.app",
		"http://[::1]:5000/books/": "::1",
		"":                         "",
	}
	for in, want := range cases {
		if got := hostName(in); got != want {
			t.Fatalf("hostName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCloseWaitsForRevalidateOnMiss(t *testing.T) {
	store := newTestStore(t)
	origin := newFakeOrigin(map[string]string{"/": "home"})
	origin.hold = make(chan struct{})
	h := newTestHandler(t, origin, store)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		_, err := h.Serve(ctx, getRequest("/", "text/html"))
		served <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for origin.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("origin was never called")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-served; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(origin.hold)
	h.Wait()
	if _, err := store.Match(context.Background(), "/"); err != nil {
		t.Fatalf("fetch started by a missed request should be stored before Wait returns: %v", err)
	}
}
