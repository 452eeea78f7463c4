package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leaftok/leaftok-site/internal/config"
)

func TestConfigureDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("未指定文件时应输出到 stdout")
	}
}

func TestInitLoggerFallbackOnPermissionDenied(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.Chmod(blocked, 0o000); err != nil {
		t.Fatalf("设置目录权限失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	cfg := config.GlobalConfig{
		LogLevel:    "info",
		LogFilePath: filepath.Join(blocked, "sub", "leaftok-site.log"),
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("初始化不应失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("fallback 时应退回 stdout")
	}
}

func TestConfigureCreatesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaftok-site.log")
	cfg := config.GlobalConfig{LogLevel: "debug", LogFilePath: path}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	logger.Info("test")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("预期创建日志文件: %v", err)
	}
}

func TestRequestFieldsCarryStrategy(t *testing.T) {
	fields := RequestFields("GET", "/books/", "html-document", "stale-while-revalidate", true)
	if fields["strategy"] != "stale-while-revalidate" || fields["cache_hit"] != true {
		t.Fatalf("字段缺失: %v", fields)
	}
	if CacheFields("sweep", "leaftok-dynamic-1.0.0", "/a")["store"] != "leaftok-dynamic-1.0.0" {
		t.Fatalf("缓存字段缺失")
	}
}

func TestComponentAddsField(t *testing.T) {
	entry := Component(NewDiscard(), "cache")
	if entry.Data["component"] != "cache" {
		t.Fatalf("component 字段缺失: %v", entry.Data)
	}
}
