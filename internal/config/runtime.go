package config

import "github.com/leaftok/leaftok-site/internal/strategy"

// RuleSpec 将 [Cache] 中的前缀/扩展名/策略字段映射为规则表参数。
func (c CacheConfig) RuleSpec() strategy.Spec {
	return strategy.Spec{
		NetworkFirstPrefixes: c.NetworkFirstPrefixes,
		CacheFirstPrefixes:   c.CacheFirstPrefixes,
		CacheFirstExtensions: c.CacheFirstExtensions,
		HTMLPolicy:           strategy.Policy(c.HTMLPolicy),
		FallbackPolicy:       strategy.Policy(c.FallbackPolicy),
	}
}

// BuildRuleTable 根据配置构建缓存策略规则表。
func (c CacheConfig) BuildRuleTable() (strategy.Table, error) {
	return strategy.BuildTable(c.RuleSpec())
}
