package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖配置时使用的前缀，例如 LEAFTOK_LISTENPORT。
const EnvPrefix = "LEAFTOK"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applySiteDefaults(&cfg.Site)
	applyCacheDefaults(&cfg.Cache)
	applyMetricsDefaults(&cfg.Metrics, cfg.Global.ListenPort)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := absolutize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv 在配置目录存在 .env 时预先注入环境变量，不存在时静默跳过。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("读取 .env 失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("ContentPath", "./content")
	v.SetDefault("OutputPath", "./out")
	v.SetDefault("StaticPath", "")
	v.SetDefault("BuildConcurrency", 8)
	v.SetDefault("UpstreamTimeout", "30s")

	v.SetDefault("Site.Name", "LeafTok")
	v.SetDefault("Site.URL", "https://leaftok.app")
	v.SetDefault("Site.Description", "AI-powered reading app that transforms books into intelligent, swipeable cards.")
	v.SetDefault("Site.AuthorName", "Iago Cavalcante")
	v.SetDefault("Site.AuthorURL", "https://iagocavalcante.com")
	v.SetDefault("Site.Twitter", "@leaftok")
	v.SetDefault("Site.IOSURL", "https://apps.apple.com/br/app/leaftok/id6748622950")
	v.SetDefault("Site.AndroidURL", "https://play.google.com/store/apps/details?id=com.iagocavalcante.leaftok")
	v.SetDefault("Site.Locales", []string{"en", "pt-BR"})

	v.SetDefault("Cache.Name", "leaftok")
	v.SetDefault("Cache.Version", "1.0.0")
	v.SetDefault("Cache.StoragePath", "./storage")
	v.SetDefault("Cache.Upstream", "")
	v.SetDefault("Cache.OfflineFallback", "/index.html")
	v.SetDefault("Cache.SweepInterval", "24h")
	v.SetDefault("Cache.PrecacheAssets", DefaultPrecacheAssets)
	v.SetDefault("Cache.NetworkFirstPrefixes", DefaultNetworkFirstPrefixes)
	v.SetDefault("Cache.CacheFirstPrefixes", DefaultCacheFirstPrefixes)
	v.SetDefault("Cache.CacheFirstExtensions", DefaultCacheFirstExtensions)
	v.SetDefault("Cache.HTMLPolicy", "stale-while-revalidate")
	v.SetDefault("Cache.FallbackPolicy", "network-first")

	v.SetDefault("Metrics.Endpoint", "")
	v.SetDefault("Metrics.ReportInterval", "24h")
	v.SetDefault("Metrics.DatabasePath", "./storage/metrics.db")
	v.SetDefault("Metrics.ProbeConcurrency", 4)
	v.SetDefault("Metrics.SlowResource", "3s")
	v.SetDefault("Metrics.LargeResourceBytes", 1024*1024)
}

// 默认规则与 Service Worker 时代的行为保持一致。
var (
	DefaultPrecacheAssets = []string{
		"/",
		"/index.html",
		"/assets/logo.png",
		"/assets/favicon.ico",
	}
	DefaultNetworkFirstPrefixes = []string{
		"/api/",
		"/blog/",
		"https://apps.apple.com/",
		"https://play.google.com/",
	}
	DefaultCacheFirstPrefixes   = []string{"/assets/"}
	DefaultCacheFirstExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".css", ".js"}
)

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.BuildConcurrency <= 0 {
		g.BuildConcurrency = 8
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
}

func applySiteDefaults(s *SiteConfig) {
	s.URL = strings.TrimSuffix(strings.TrimSpace(s.URL), "/")
	if len(s.Locales) == 0 {
		s.Locales = []string{"en"}
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.SweepInterval.DurationValue() == 0 {
		c.SweepInterval = Duration(24 * time.Hour)
	}
	if c.OfflineFallback == "" {
		c.OfflineFallback = "/index.html"
	}
	c.HTMLPolicy = strings.ToLower(strings.TrimSpace(c.HTMLPolicy))
	c.FallbackPolicy = strings.ToLower(strings.TrimSpace(c.FallbackPolicy))
	normalized := make([]string, 0, len(c.CacheFirstExtensions))
	for _, ext := range c.CacheFirstExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.CacheFirstExtensions = normalized
}

func applyMetricsDefaults(m *MetricsConfig, port int) {
	if m.ReportInterval.DurationValue() == 0 {
		m.ReportInterval = Duration(24 * time.Hour)
	}
	if m.ProbeConcurrency <= 0 {
		m.ProbeConcurrency = 4
	}
	if m.SlowResource.DurationValue() == 0 {
		m.SlowResource = Duration(3 * time.Second)
	}
	if m.LargeResourceBytes <= 0 {
		m.LargeResourceBytes = 1024 * 1024
	}
	if strings.TrimSpace(m.Endpoint) == "" {
		m.Endpoint = fmt.Sprintf("http://127.0.0.1:%d/api/seo-metrics", port)
	}
}

func absolutize(cfg *Config) error {
	targets := []struct {
		field string
		value *string
	}{
		{"Global.ContentPath", &cfg.Global.ContentPath},
		{"Global.OutputPath", &cfg.Global.OutputPath},
		{"Global.StaticPath", &cfg.Global.StaticPath},
		{"Cache.StoragePath", &cfg.Cache.StoragePath},
		{"Metrics.DatabasePath", &cfg.Metrics.DatabasePath},
	}
	for _, target := range targets {
		if *target.value == "" {
			continue
		}
		abs, err := filepath.Abs(*target.value)
		if err != nil {
			return fmt.Errorf("无法解析路径 %s: %w", target.field, err)
		}
		*target.value = abs
	}
	return nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
