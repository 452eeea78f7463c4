package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/leaftok/leaftok-site/internal/strategy"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.ContentPath) == "" {
		return newFieldError("Global.ContentPath", "不能为空")
	}
	if strings.TrimSpace(g.OutputPath) == "" {
		return newFieldError("Global.OutputPath", "不能为空")
	}
	if g.BuildConcurrency <= 0 {
		return newFieldError("Global.BuildConcurrency", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if err := c.Site.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	return c.Metrics.validate()
}

func (s SiteConfig) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return newFieldError(sectionField("Site", "Name"), "不能为空")
	}
	if err := validateHTTPURL(s.URL); err != nil {
		return fmt.Errorf("%s: %w", sectionField("Site", "URL"), err)
	}
	return nil
}

func (c CacheConfig) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return newFieldError(sectionField("Cache", "Name"), "不能为空")
	}
	if strings.ContainsAny(c.Name, "/\\ ") {
		return newFieldError(sectionField("Cache", "Name"), "不允许包含路径分隔符或空格")
	}
	if strings.TrimSpace(c.Version) == "" {
		return newFieldError(sectionField("Cache", "Version"), "不能为空")
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		return newFieldError(sectionField("Cache", "StoragePath"), "不能为空")
	}
	if c.SweepInterval.DurationValue() <= 0 {
		return newFieldError(sectionField("Cache", "SweepInterval"), "必须大于 0")
	}
	if !strings.HasPrefix(c.OfflineFallback, "/") {
		return newFieldError(sectionField("Cache", "OfflineFallback"), "必须以 / 开头")
	}
	if c.UsesUpstream() {
		if err := validateHTTPURL(c.Upstream); err != nil {
			return fmt.Errorf("%s: %w", sectionField("Cache", "Upstream"), err)
		}
	}
	for field, value := range map[string]string{"HTMLPolicy": c.HTMLPolicy, "FallbackPolicy": c.FallbackPolicy} {
		if value == "" {
			continue
		}
		if _, ok := strategy.Resolve(value); !ok {
			return newFieldError(sectionField("Cache", field), "仅支持 "+strings.Join(strategy.Keys(), "|"))
		}
	}
	for _, asset := range c.PrecacheAssets {
		if !strings.HasPrefix(asset, "/") && validateHTTPURL(asset) != nil {
			return newFieldError(sectionField("Cache", "PrecacheAssets"), fmt.Sprintf("无效资源: %s", asset))
		}
	}
	return nil
}

func (m MetricsConfig) validate() error {
	if m.Endpoint != "" {
		if err := validateHTTPURL(m.Endpoint); err != nil {
			return fmt.Errorf("%s: %w", sectionField("Metrics", "Endpoint"), err)
		}
	}
	if m.ReportInterval.DurationValue() <= 0 {
		return newFieldError(sectionField("Metrics", "ReportInterval"), "必须大于 0")
	}
	if m.ProbeConcurrency <= 0 {
		return newFieldError(sectionField("Metrics", "ProbeConcurrency"), "必须大于 0")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("缺少地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
