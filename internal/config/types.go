package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"24h" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述构建与服务进程共享的运行时参数。
type GlobalConfig struct {
	ListenPort       int      `mapstructure:"ListenPort"`
	LogLevel         string   `mapstructure:"LogLevel"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	ContentPath      string   `mapstructure:"ContentPath"`
	OutputPath       string   `mapstructure:"OutputPath"`
	StaticPath       string   `mapstructure:"StaticPath"`
	BuildConcurrency int      `mapstructure:"BuildConcurrency"`
	UpstreamTimeout  Duration `mapstructure:"UpstreamTimeout"`
}

// SiteConfig 是页面元数据与结构化数据共用的站点信息。
type SiteConfig struct {
	Name        string   `mapstructure:"Name"`
	URL         string   `mapstructure:"URL"`
	Description string   `mapstructure:"Description"`
	AuthorName  string   `mapstructure:"AuthorName"`
	AuthorURL   string   `mapstructure:"AuthorURL"`
	Twitter     string   `mapstructure:"Twitter"`
	IOSURL      string   `mapstructure:"IOSURL"`
	AndroidURL  string   `mapstructure:"AndroidURL"`
	Locales     []string `mapstructure:"Locales"`
}

// CacheConfig 决定缓存路由器的存储命名、预缓存资源与策略规则表。
type CacheConfig struct {
	Name                 string   `mapstructure:"Name"`
	Version              string   `mapstructure:"Version"`
	StoragePath          string   `mapstructure:"StoragePath"`
	Upstream             string   `mapstructure:"Upstream"`
	OfflineFallback      string   `mapstructure:"OfflineFallback"`
	SweepInterval        Duration `mapstructure:"SweepInterval"`
	PrecacheAssets       []string `mapstructure:"PrecacheAssets"`
	NetworkFirstPrefixes []string `mapstructure:"NetworkFirstPrefixes"`
	CacheFirstPrefixes   []string `mapstructure:"CacheFirstPrefixes"`
	CacheFirstExtensions []string `mapstructure:"CacheFirstExtensions"`
	HTMLPolicy           string   `mapstructure:"HTMLPolicy"`
	FallbackPolicy       string   `mapstructure:"FallbackPolicy"`
}

// MetricsConfig 控制指标上报端点、周期以及报告落库位置。
type MetricsConfig struct {
	Endpoint           string   `mapstructure:"Endpoint"`
	ReportInterval     Duration `mapstructure:"ReportInterval"`
	DatabasePath       string   `mapstructure:"DatabasePath"`
	ProbeConcurrency   int      `mapstructure:"ProbeConcurrency"`
	SlowResource       Duration `mapstructure:"SlowResource"`
	LargeResourceBytes int64    `mapstructure:"LargeResourceBytes"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig  `mapstructure:",squash"`
	Site    SiteConfig    `mapstructure:"Site"`
	Cache   CacheConfig   `mapstructure:"Cache"`
	Metrics MetricsConfig `mapstructure:"Metrics"`
}

// StaticStoreName 返回当前版本的静态缓存名，例如 leaftok-static-1.0.0。
func (c CacheConfig) StaticStoreName() string {
	return fmt.Sprintf("%s-static-%s", c.Name, c.Version)
}

// DynamicStoreName 返回当前版本的动态缓存名。
func (c CacheConfig) DynamicStoreName() string {
	return fmt.Sprintf("%s-dynamic-%s", c.Name, c.Version)
}

// VersionTag 是 GET_VERSION 消息返回的版本串。
func (c CacheConfig) VersionTag() string {
	return fmt.Sprintf("%s-v%s", c.Name, c.Version)
}

// UsesUpstream 表示是否回源到远端站点；为空时直接读取构建输出目录。
func (c CacheConfig) UsesUpstream() bool {
	return strings.TrimSpace(c.Upstream) != ""
}

// CriticalEndpoint 返回即时告警的投递地址。
func (m MetricsConfig) CriticalEndpoint() string {
	if m.Endpoint == "" {
		return ""
	}
	return strings.TrimSuffix(m.Endpoint, "/") + "/critical"
}
