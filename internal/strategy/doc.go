// Package strategy 描述缓存路由器可用的缓存策略，并提供按顺序求值的规则表。
//
// 每种策略以 Profile 形式注册到全局注册表（network-first、cache-first、
// stale-while-revalidate），规则表则是 (匹配条件, 策略) 的有序列表：
// Select 返回第一条命中的规则，全部未命中时回退到 fallback 策略。
// 这样策略优先级成为可测试的数据结构，而不是嵌套的条件分支。
package strategy
