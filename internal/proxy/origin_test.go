package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
)

func TestFSOriginMapsDirectoriesToIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/out/index.html", []byte("home"), 0o644)
	_ = afero.WriteFile(fs, "/out/books/fiction/index.html", []byte("fiction"), 0o644)
	_ = afero.WriteFile(fs, "/out/404.html", []byte("nope"), 0o644)
	_ = afero.WriteFile(fs, "/out/sitemap.xml", []byte("<urlset/>"), 0o644)
	origin := NewFSOrigin(fs, "/out")

	cases := []struct {
		path   string
		status int
		body   string
		ctype  string
	}{
		{"/", http.StatusOK, "home", "text/html; charset=utf-8"},
		{"/books/fiction/", http.StatusOK, "fiction", "text/html; charset=utf-8"},
		{"/books/fiction", http.StatusOK, "fiction", "text/html; charset=utf-8"},
		{"/sitemap.xml", http.StatusOK, "<urlset/>", "application/xml; charset=utf-8"},
		{"/missing/", http.StatusNotFound, "nope", "text/html; charset=utf-8"},
	}
	for _, tc := range cases {
		resp, err := origin.Fetch(context.Background(), getRequest(tc.path, ""))
		if err != nil {
			t.Fatalf("%s: fetch error %v", tc.path, err)
		}
		if resp.Status != tc.status || string(resp.Body) != tc.body {
			t.Fatalf("%s: got %d %s", tc.path, resp.Status, resp.Body)
		}
		if got := resp.Header.Get("Content-Type"); got != tc.ctype {
			t.Fatalf("%s: content type %s", tc.path, got)
		}
	}
}

func TestFSOriginRejectsCrossOrigin(t *testing.T) {
	origin := NewFSOrigin(afero.NewMemMapFs(), "/out")
	req := getRequest("/", "")
	req.URL = "https://apps.apple.com/app"
	if _, err := origin.Fetch(context.Background(), req); err == nil {
		t.Fatalf("cross-origin request should fail on disk origin")
	}
}

func TestHTTPOriginResolvesAgainstUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Connection", "close")
		_, _ = io.WriteString(w, r.URL.Path+"?"+r.URL.RawQuery)
	}))
	defer upstream.Close()

	origin, err := NewHTTPOrigin(upstream.Client(), upstream.URL)
	if err != nil {
		t.Fatalf("new origin: %v", err)
	}
	req := getRequest("/books/", "")
	req.Query = "page=2"
	resp, err := origin.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(resp.Body) != "/books/?page=2" {
		t.Fatalf("unexpected body %s", resp.Body)
	}
	if resp.Header.Get("Connection") != "" {
		t.Fatalf("hop-by-hop headers should be stripped")
	}
}

func TestHTTPOriginWrapsTransportErrors(t *testing.T) {
	origin, err := NewHTTPOrigin(http.DefaultClient, "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new origin: %v", err)
	}
	if _, err := origin.Fetch(context.Background(), getRequest("/", "")); err == nil {
		t.Fatalf("expected transport error")
	}
	if _, err := NewHTTPOrigin(nil, "/relative"); err == nil {
		t.Fatalf("relative upstream should be rejected")
	}
}
