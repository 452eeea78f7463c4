package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<StoragePath>/<StoreName>/<sha1[:2]>/<sha1>        # 实际正文
//	<StoragePath>/<StoreName>/<sha1[:2]>/<sha1>.meta   # key/status/header
//
// 条目没有 TTL，整个分区随版本号切换被删除。
type Store interface {
	// Get 返回指定分区内的缓存条目。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, locator Locator) (*ReadResult, error)

	// Match 在所有分区中查找 key，返回第一个命中的条目。
	Match(ctx context.Context, key string) (*ReadResult, error)

	// Put 将响应写入缓存。实现需通过临时文件 + rename 保证写入原子性。
	Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除单个条目。
	Remove(ctx context.Context, locator Locator) error

	// Stores 列出现存分区名称（按名称排序）。
	Stores(ctx context.Context) ([]string, error)

	// DeleteStore 删除整个分区，返回分区此前是否存在。
	DeleteStore(ctx context.Context, name string) (bool, error)
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
	Status  int
	Header  http.Header
}

// Locator 唯一定位一个缓存条目（分区名 + 请求键）。
type Locator struct {
	Store string
	Key   string
}

// Entry 描述一个缓存条目。
type Entry struct {
	Locator   Locator     `json:"locator"`
	FilePath  string      `json:"file_path"`
	SizeBytes int64       `json:"size_bytes"`
	Status    int         `json:"status"`
	Header    http.Header `json:"header,omitempty"`
	ModTime   time.Time   `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ReadAll 读取全部正文并关闭 Reader。
func (r *ReadResult) ReadAll() ([]byte, error) {
	defer r.Reader.Close()
	return io.ReadAll(r.Reader)
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidStore 表示分区名称非法（空、含分隔符或以点开头）。
	ErrInvalidStore = errors.New("invalid cache store name")
)
