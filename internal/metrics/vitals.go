package metrics

import "sort"

// Rating 是指标分级。
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
	RatingUnknown          Rating = "unknown"
)

// Core Web Vitals 名称。
const (
	VitalCLS  = "CLS"
	VitalFID  = "FID"
	VitalFCP  = "FCP"
	VitalLCP  = "LCP"
	VitalTTFB = "TTFB"
)

type threshold struct {
	good float64
	poor float64
}

// 阈值单位：CLS 无量纲，其余为毫秒。
var thresholds = map[string]threshold{
	VitalCLS:  {good: 0.1, poor: 0.25},
	VitalFID:  {good: 100, poor: 300},
	VitalFCP:  {good: 1800, poor: 3000},
	VitalLCP:  {good: 2500, poor: 4000},
	VitalTTFB: {good: 800, poor: 1800},
}

var vitalOrder = []string{VitalCLS, VitalFID, VitalFCP, VitalLCP, VitalTTFB}

// Rate 边界值包含在较好的一档。
func Rate(name string, value float64) Rating {
	t, ok := thresholds[name]
	if !ok {
		return RatingUnknown
	}
	switch {
	case value <= t.good:
		return RatingGood
	case value <= t.poor:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// Vital 是一次指标测量。
type Vital struct {
	Value     float64 `json:"value"`
	Rating    Rating  `json:"rating"`
	Timestamp int64   `json:"timestamp"`
	Fallback  bool    `json:"fallback,omitempty"`
}

var vitalAdvice = map[string]string{
	VitalCLS:  "Reduce layout shifts by properly sizing images and avoiding dynamic content insertion",
	VitalFID:  "Reduce JavaScript execution time and optimize event handlers",
	VitalFCP:  "Optimize critical rendering path and reduce server response time",
	VitalLCP:  "Optimize largest contentful element loading and reduce server response time",
	VitalTTFB: "Optimize server response time and use CDN for static assets",
}

func vitalRecommendation(name string) string {
	if msg, ok := vitalAdvice[name]; ok {
		return msg
	}
	return "Optimize this metric for better user experience"
}

// orderedVitals 先按已知指标顺序，其余按名称排序。
func orderedVitals(vitals map[string]Vital) []string {
	names := make([]string, 0, len(vitals))
	for _, name := range vitalOrder {
		if _, ok := vitals[name]; ok {
			names = append(names, name)
		}
	}
	extra := make([]string, 0)
	for name := range vitals {
		if _, known := thresholds[name]; !known {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
