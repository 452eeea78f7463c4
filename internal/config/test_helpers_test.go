package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:       5000,
			ContentPath:      "./content",
			OutputPath:       "./out",
			BuildConcurrency: 2,
			UpstreamTimeout:  Duration(time.Second),
		},
		Site: SiteConfig{
			Name: "LeafTok",
			URL:  "https://leaftok.app",
		},
		Cache: CacheConfig{
			Name:            "leaftok",
			Version:         "1.0.0",
			StoragePath:     "./storage",
			OfflineFallback: "/index.html",
			SweepInterval:   Duration(time.Hour),
			HTMLPolicy:      "stale-while-revalidate",
			FallbackPolicy:  "network-first",
		},
		Metrics: MetricsConfig{
			ReportInterval:   Duration(time.Hour),
			ProbeConcurrency: 1,
		},
	}
}
