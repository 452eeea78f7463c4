package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供策略/规则/命中状态字段，供缓存路由请求日志复用。
func RequestFields(method, path, rule, policy string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"method":    method,
		"path":      path,
		"rule":      rule,
		"strategy":  policy,
		"cache_hit": cacheHit,
	}
}

// CacheFields 描述缓存分区与条目键，供生命周期与清理日志使用。
func CacheFields(action, store, key string) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"store":  store,
		"key":    key,
	}
}

// ContentFields 描述内容仓库中某个实体的定位信息。
func ContentFields(kind, slug, path string) logrus.Fields {
	return logrus.Fields{
		"kind": kind,
		"slug": slug,
		"path": path,
	}
}

// MetricFields 描述一次 Web Vital 上报。
func MetricFields(session, name string, value float64, rating string) logrus.Fields {
	return logrus.Fields{
		"session": session,
		"metric":  name,
		"value":   value,
		"rating":  rating,
	}
}
