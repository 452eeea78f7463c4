package metrics

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// 建议的优先级。
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// SEOScoreTarget 低于该分数时才输出逐项 SEO 建议。
const SEOScoreTarget = 80

// Recommendation 是报告中的一条改进建议。
type Recommendation struct {
	Type     string          `json:"type"`
	Metric   string          `json:"metric,omitempty"`
	Check    string          `json:"check,omitempty"`
	Message  string          `json:"message"`
	Details  []ResourceIssue `json:"details,omitempty"`
	Priority string          `json:"priority"`
}

// PerformanceMetrics 汇总导航与资源数据。
type PerformanceMetrics struct {
	Navigation *NavigationMetrics `json:"navigation,omitempty"`
	Resources  *ResourceAnalysis  `json:"resources,omitempty"`
}

// ReportMetrics 是报告中的 metrics 字段。
type ReportMetrics struct {
	CoreWebVitals      map[string]Vital   `json:"coreWebVitals"`
	SEOScore           int                `json:"seoScore"`
	SEOChecks          map[string]bool    `json:"seoChecks,omitempty"`
	PerformanceMetrics PerformanceMetrics `json:"performanceMetrics"`
	UserEngagement     Engagement         `json:"userEngagement"`
}

// Report 是投递给指标端点的完整报告。
type Report struct {
	Timestamp       int64            `json:"timestamp"`
	SessionID       string           `json:"sessionId"`
	URL             string           `json:"url"`
	UserAgent       string           `json:"userAgent"`
	Viewport        Viewport         `json:"viewport"`
	Metrics         ReportMetrics    `json:"metrics"`
	Recommendations []Recommendation `json:"recommendations"`
}

// BuildReport 生成会话快照并附带建议。
func BuildReport(s *Session, now time.Time) Report {
	vitals := make(map[string]Vital, len(s.Vitals))
	for name, v := range s.Vitals {
		vitals[name] = v
	}
	metrics := ReportMetrics{
		CoreWebVitals: vitals,
		PerformanceMetrics: PerformanceMetrics{
			Navigation: s.Navigation,
			Resources:  s.Resources,
		},
		UserEngagement: s.Engagement,
	}
	if s.Health != nil {
		metrics.SEOScore = s.Health.Score
		metrics.SEOChecks = s.Health.Checks
	}
	return Report{
		Timestamp:       now.UnixMilli(),
		SessionID:       s.ID,
		URL:             s.URL,
		UserAgent:       s.UserAgent,
		Viewport:        s.Viewport,
		Metrics:         metrics,
		Recommendations: recommendations(s),
	}
}

func recommendations(s *Session) []Recommendation {
	out := make([]Recommendation, 0)
	for _, name := range orderedVitals(s.Vitals) {
		if s.Vitals[name].Rating != RatingPoor {
			continue
		}
		out = append(out, Recommendation{
			Type:     "critical",
			Metric:   name,
			Message:  vitalRecommendation(name),
			Priority: PriorityHigh,
		})
	}
	if s.Health != nil && s.Health.Score < SEOScoreTarget {
		for _, check := range s.Health.Failed() {
			out = append(out, Recommendation{
				Type:     "seo",
				Check:    check,
				Message:  checkRecommendation(check),
				Priority: PriorityMedium,
			})
		}
	}
	if r := s.Resources; r != nil {
		if len(r.SlowResources) > 0 {
			out = append(out, Recommendation{
				Type:     "performance",
				Message:  fmt.Sprintf("%d slow loading resources detected", len(r.SlowResources)),
				Details:  r.SlowResources,
				Priority: PriorityMedium,
			})
		}
		if len(r.LargeResources) > 0 {
			out = append(out, Recommendation{
				Type:     "performance",
				Message:  fmt.Sprintf("%d large resources detected", len(r.LargeResources)),
				Details:  r.LargeResources,
				Priority: PriorityLow,
			})
		}
	}
	return out
}

// ExportJSON 以两个空格缩进输出。
func ExportJSON(r Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ExportCSV 输出时间、URL、SEO 得分以及每个指标一行。
func ExportCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{
		{"Timestamp", time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339Nano)},
		{"URL", r.URL},
		{"SEO Score", strconv.Itoa(r.Metrics.SEOScore) + "%"},
	}
	for _, name := range orderedVitals(r.Metrics.CoreWebVitals) {
		v := r.Metrics.CoreWebVitals[name]
		rows = append(rows, []string{name, strconv.FormatFloat(v.Value, 'f', -1, 64), string(v.Rating)})
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
