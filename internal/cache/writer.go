package cache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/leaftok/leaftok-site/internal/strategy"
)

// ErrStoreUnavailable 表示未注入缓存存储实例。
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Generation 将策略的写入角色（static/dynamic）映射到当前版本的分区名。
type Generation struct {
	store   Store
	static  string
	dynamic string
	now     func() time.Time
}

// NewGeneration 构造当前版本的分区视图，默认使用 time.Now 作为时钟。
func NewGeneration(store Store, staticName, dynamicName string) Generation {
	return Generation{
		store:   store,
		static:  staticName,
		dynamic: dynamicName,
		now:     time.Now,
	}
}

// Enabled 返回当前是否具备缓存能力。
func (g Generation) Enabled() bool {
	return g.store != nil
}

// Store 返回底层存储。
func (g Generation) Store() Store {
	return g.store
}

// StoreName 返回角色对应的分区名。
func (g Generation) StoreName(role strategy.StoreRole) string {
	if role == strategy.StoreStatic {
		return g.static
	}
	return g.dynamic
}

// LiveStores 返回当前版本的两个分区名。
func (g Generation) LiveStores() []string {
	return []string{g.static, g.dynamic}
}

// IsLive 判断分区是否属于当前版本。
func (g Generation) IsLive(name string) bool {
	return name == g.static || name == g.dynamic
}

// Write 将缓冲的响应写入 role 对应的分区。
func (g Generation) Write(ctx context.Context, role strategy.StoreRole, key string, status int, header http.Header, body []byte) (*Entry, error) {
	if g.store == nil {
		return nil, ErrStoreUnavailable
	}
	locator := Locator{Store: g.StoreName(role), Key: key}
	return g.store.Put(ctx, locator, bytes.NewReader(body), PutOptions{
		ModTime: g.now().UTC(),
		Status:  status,
		Header:  header,
	})
}

// Match 在所有分区中查找 key。
func (g Generation) Match(ctx context.Context, key string) (*ReadResult, error) {
	if g.store == nil {
		return nil, ErrStoreUnavailable
	}
	return g.store.Match(ctx, key)
}
