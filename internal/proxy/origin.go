package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/leaftok/leaftok-site/internal/server"
	"github.com/leaftok/leaftok-site/internal/version"
)

// Request 是缓存路由器处理的请求视图，与 Fiber 解耦以便单测。
type Request struct {
	Method string
	// URL 为绝对地址时直接回源该地址；否则为 path + query。
	URL    string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Key 返回缓存键：绝对 URL 原样使用，站内请求为 path(+?query)。
func (r *Request) Key() string {
	if isAbsoluteURL(r.URL) {
		return r.URL
	}
	if r.Query != "" {
		return r.Path + "?" + r.Query
	}
	return r.Path
}

// AcceptsHTML 判断请求是否期望 HTML 文档。
func (r *Request) AcceptsHTML() bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/html")
}

// Response 是缓冲后的回源结果。
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Origin 抽象回源目标：远端站点或本地构建输出目录。
type Origin interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// OriginFunc 适配函数为 Origin，测试中用于注入假回源。
type OriginFunc func(ctx context.Context, req *Request) (*Response, error)

// Fetch 实现 Origin。
func (f OriginFunc) Fetch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// ErrUpstream 表示回源失败（网络错误、超时等），不包含非 2xx 响应。
var ErrUpstream = errors.New("upstream fetch failed")

// HTTPOrigin 通过共享 http.Client 访问 Cache.Upstream。
type HTTPOrigin struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPOrigin 解析上游地址并复用传入的 client。
func NewHTTPOrigin(client *http.Client, upstream string) (*HTTPOrigin, error) {
	base, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream must be absolute: %s", upstream)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPOrigin{client: client, base: base}, nil
}

// Fetch 转发请求；绝对 URL 原样访问，其余相对 upstream 解析。
func (o *HTTPOrigin) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target := o.resolve(req)
	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	server.CopyHeaders(upstreamReq.Header, req.Header)
	upstreamReq.Header.Del("Accept-Encoding")
	upstreamReq.Header.Del("Host")
	upstreamReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := o.client.Do(upstreamReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	header := make(http.Header, len(resp.Header))
	server.CopyHeaders(header, resp.Header)
	header.Del("Content-Length")
	return &Response{Status: resp.StatusCode, Header: header, Body: payload}, nil
}

func (o *HTTPOrigin) resolve(req *Request) string {
	if isAbsoluteURL(req.URL) {
		return req.URL
	}
	relative := &url.URL{Path: req.Path, RawQuery: req.Query}
	return o.base.ResolveReference(relative).String()
}

// FSOrigin 直接读取构建输出目录，作为未配置 Upstream 时的回源。
type FSOrigin struct {
	fs afero.Fs
}

// NewFSOrigin 以 root 为根目录构建只读回源。
func NewFSOrigin(fsys afero.Fs, root string) *FSOrigin {
	return &FSOrigin{fs: afero.NewReadOnlyFs(afero.NewBasePathFs(fsys, root))}
}

// Fetch 将 /x/ 映射为 x/index.html；缺失文件返回 404 响应而不是错误。
func (o *FSOrigin) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isAbsoluteURL(req.URL) {
		return nil, fmt.Errorf("%w: cross-origin %s not served from disk", ErrUpstream, req.URL)
	}
	if req.Method != "" && req.Method != http.MethodGet && req.Method != http.MethodHead {
		return &Response{Status: http.StatusMethodNotAllowed, Header: http.Header{}}, nil
	}

	name := fsPath(req.Path)
	if info, err := o.fs.Stat(name); err == nil && info.IsDir() {
		name = path.Join(name, "index.html")
	}
	data, err := afero.ReadFile(o.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return o.notFound()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	header := http.Header{}
	header.Set("Content-Type", contentTypeFor(name))
	return &Response{Status: http.StatusOK, Header: header, Body: data}, nil
}

func (o *FSOrigin) notFound() (*Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	body, err := afero.ReadFile(o.fs, "/404.html")
	if err != nil {
		body = []byte("not found")
		header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	return &Response{Status: http.StatusNotFound, Header: header, Body: body}, nil
}

func fsPath(p string) string {
	clean := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") {
		return path.Join(clean, "index.html")
	}
	return clean
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", "":
		return "text/html; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isAbsoluteURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
