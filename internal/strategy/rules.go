package strategy

import (
	"fmt"
	"strings"
)

// Request 是规则匹配所需的最小请求视图。
type Request struct {
	Method string
	// URL 为完整地址（含 scheme/host），用于匹配跨域前缀。
	URL string
	// Path 为 URL path 部分。
	Path   string
	Accept string
}

// Matcher 判断请求是否命中某条规则。
type Matcher func(Request) bool

// Rule 是规则表中的一行。
type Rule struct {
	Name   string
	Policy Policy
	Match  Matcher
}

// Decision 是 Select 的结果，Rule 为空表示走了 fallback。
type Decision struct {
	Rule   string
	Policy Policy
}

// Table 按顺序求值的 (匹配条件, 策略) 列表。
type Table struct {
	rules    []Rule
	fallback Policy
}

// NewTable 构造规则表；fallback 为空时使用 network-first。
func NewTable(fallback Policy, rules ...Rule) Table {
	if fallback == "" {
		fallback = NetworkFirst
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return Table{rules: copied, fallback: fallback}
}

// Select 返回第一条命中的规则对应的策略。
func (t Table) Select(req Request) Decision {
	for _, rule := range t.rules {
		if rule.Match != nil && rule.Match(req) {
			return Decision{Rule: rule.Name, Policy: rule.Policy}
		}
	}
	return Decision{Rule: "fallback", Policy: t.fallback}
}

// Rules 返回规则副本，供诊断接口输出。
func (t Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Fallback 返回未命中任何规则时使用的策略。
func (t Table) Fallback() Policy {
	return t.fallback
}

// PathPrefix 匹配 path 前缀；以 http(s):// 开头的前缀匹配完整 URL。
func PathPrefix(prefixes ...string) Matcher {
	return func(req Request) bool {
		for _, prefix := range prefixes {
			if prefix == "" {
				continue
			}
			if isAbsolute(prefix) {
				if strings.HasPrefix(req.URL, prefix) {
					return true
				}
				continue
			}
			if strings.HasPrefix(req.Path, prefix) {
				return true
			}
		}
		return false
	}
}

// PathSuffix 匹配 path 后缀（大小写不敏感），用于静态资源扩展名。
func PathSuffix(suffixes ...string) Matcher {
	return func(req Request) bool {
		lower := strings.ToLower(req.Path)
		for _, suffix := range suffixes {
			if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
				return true
			}
		}
		return false
	}
}

// Accepts 匹配 Accept 头中包含指定媒体类型的请求。
func Accepts(mediaType string) Matcher {
	return func(req Request) bool {
		return strings.Contains(strings.ToLower(req.Accept), mediaType)
	}
}

// Any 任一子条件命中即命中。
func Any(matchers ...Matcher) Matcher {
	return func(req Request) bool {
		for _, m := range matchers {
			if m != nil && m(req) {
				return true
			}
		}
		return false
	}
}

// Spec 是从配置推导出的默认规则表参数。
type Spec struct {
	NetworkFirstPrefixes []string
	CacheFirstPrefixes   []string
	CacheFirstExtensions []string
	HTMLPolicy           Policy
	FallbackPolicy       Policy
}

// BuildTable 依次生成 network-first 前缀、静态资源、HTML 三条规则。
func BuildTable(spec Spec) (Table, error) {
	htmlPolicy := spec.HTMLPolicy
	if htmlPolicy == "" {
		htmlPolicy = StaleWhileRevalidate
	}
	fallback := spec.FallbackPolicy
	if fallback == "" {
		fallback = NetworkFirst
	}
	for _, p := range []Policy{htmlPolicy, fallback} {
		if _, ok := Resolve(string(p)); !ok {
			return Table{}, fmt.Errorf("unknown cache policy: %s", p)
		}
	}

	rules := make([]Rule, 0, 3)
	if len(spec.NetworkFirstPrefixes) > 0 {
		rules = append(rules, Rule{
			Name:   "network-first-prefix",
			Policy: NetworkFirst,
			Match:  PathPrefix(spec.NetworkFirstPrefixes...),
		})
	}
	if len(spec.CacheFirstPrefixes) > 0 || len(spec.CacheFirstExtensions) > 0 {
		rules = append(rules, Rule{
			Name:   "static-asset",
			Policy: CacheFirst,
			Match:  Any(PathPrefix(spec.CacheFirstPrefixes...), PathSuffix(spec.CacheFirstExtensions...)),
		})
	}
	rules = append(rules, Rule{
		Name:   "html-document",
		Policy: htmlPolicy,
		Match:  Accepts("text/html"),
	})

	return NewTable(fallback, rules...), nil
}

func isAbsolute(prefix string) bool {
	return strings.HasPrefix(prefix, "http://") || strings.HasPrefix(prefix, "https://")
}
