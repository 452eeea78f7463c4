package strategy

// Policy 是缓存策略的键值。
type Policy string

const (
	NetworkFirst         Policy = "network-first"
	CacheFirst           Policy = "cache-first"
	StaleWhileRevalidate Policy = "stale-while-revalidate"
)

// StoreRole 区分策略写入的缓存分区。
type StoreRole string

const (
	StoreStatic  StoreRole = "static"
	StoreDynamic StoreRole = "dynamic"
)

// Profile 记录一个策略的静态信息，供路由器执行与诊断端展示。
type Profile struct {
	Key         Policy
	Description string
	// WriteStore 指定成功回源后写入哪个缓存分区。
	WriteStore StoreRole
	// CacheFirst 为 true 时先查缓存，命中即返回。
	CacheFirst bool
	// BackgroundRefresh 表示命中缓存后仍在后台回源刷新。
	BackgroundRefresh bool
	// OfflineFallback 表示回源失败时允许返回离线页面（仅 HTML 请求）。
	OfflineFallback bool
}
