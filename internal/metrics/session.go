package metrics

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Viewport 是浏览器视口尺寸。
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NavigationTiming 是 PerformanceNavigationTiming 的子集，单位毫秒。
type NavigationTiming struct {
	FetchStart                 float64 `json:"fetchStart"`
	RequestStart               float64 `json:"requestStart"`
	ResponseStart              float64 `json:"responseStart"`
	DOMInteractive             float64 `json:"domInteractive"`
	DOMContentLoadedEventStart float64 `json:"domContentLoadedEventStart"`
	DOMContentLoadedEventEnd   float64 `json:"domContentLoadedEventEnd"`
	LoadEventStart             float64 `json:"loadEventStart"`
	LoadEventEnd               float64 `json:"loadEventEnd"`
}

// NavigationMetrics 由 NavigationTiming 推导。
type NavigationMetrics struct {
	DOMContentLoaded float64 `json:"domContentLoaded"`
	LoadComplete     float64 `json:"loadComplete"`
	FirstByte        float64 `json:"firstByte"`
	DOMInteractive   float64 `json:"domInteractive"`
	Timestamp        int64   `json:"timestamp"`
}

// ResourceTiming 是单个资源的加载记录；TransferSize 为负表示加载失败。
type ResourceTiming struct {
	Name         string  `json:"name"`
	StartTime    float64 `json:"startTime"`
	ResponseEnd  float64 `json:"responseEnd"`
	TransferSize int64   `json:"transferSize"`
}

// ResourceIssue 是被标记为慢或大的资源。
type ResourceIssue struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
}

// ResourceAnalysis 汇总资源加载情况。
type ResourceAnalysis struct {
	TotalResources  int             `json:"totalResources"`
	SlowResources   []ResourceIssue `json:"slowResources"`
	LargeResources  []ResourceIssue `json:"largeResources"`
	FailedResources []ResourceIssue `json:"failedResources"`
}

// Engagement 是用户参与度。
type Engagement struct {
	TimeOnPage     int64 `json:"timeOnPage"`
	MaxScrollDepth int   `json:"maxScrollDepth"`
	Interactions   int   `json:"interactions"`
}

// Session 记录一次页面访问的全部指标，由调用方显式持有。
type Session struct {
	ID         string             `json:"id"`
	URL        string             `json:"url"`
	UserAgent  string             `json:"userAgent"`
	Viewport   Viewport           `json:"viewport"`
	StartedAt  time.Time          `json:"startedAt"`
	LastSeen   time.Time          `json:"lastSeen"`
	Vitals     map[string]Vital   `json:"coreWebVitals"`
	Navigation *NavigationMetrics `json:"navigation,omitempty"`
	Resources  *ResourceAnalysis  `json:"resources,omitempty"`
	Engagement Engagement         `json:"userEngagement"`
	Health     *HealthResult      `json:"seo,omitempty"`
	// Ended 在收到 unload 事件后置位，投递后即可释放。
	Ended bool `json:"ended,omitempty"`
}

// NewSession 为空 id 生成 uuid。
func NewSession(id, pageURL, userAgent string, viewport Viewport, now time.Time) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		URL:       pageURL,
		UserAgent: userAgent,
		Viewport:  viewport,
		StartedAt: now,
		LastSeen:  now,
		Vitals:    make(map[string]Vital),
	}
}

// CriticalReport 是 poor 指标的即时告警。
type CriticalReport struct {
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"`
	SessionID string  `json:"sessionId,omitempty"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Rating    Rating  `json:"rating"`
	URL       string  `json:"url"`
	UserAgent string  `json:"userAgent"`
}

// CriticalSink 接收即时告警，不参与批量上报。
type CriticalSink func(CriticalReport)

// Collector 封装阈值与时钟，所有方法显式接收 Session。
type Collector struct {
	Sink          CriticalSink
	SlowResource  time.Duration
	LargeResource int64
	Now           func() time.Time
}

// NewCollector 使用默认阈值：3s 与 1 MiB。
func NewCollector(sink CriticalSink) *Collector {
	return &Collector{
		Sink:          sink,
		SlowResource:  3 * time.Second,
		LargeResource: 1024 * 1024,
		Now:           time.Now,
	}
}

func (c *Collector) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// RecordWebVital 写入指标；评级为 poor 时立即交给 Sink。
func (c *Collector) RecordWebVital(s *Session, name string, value float64, approximate bool) Vital {
	now := c.now()
	vital := Vital{
		Value:     value,
		Rating:    Rate(name, value),
		Timestamp: now.UnixMilli(),
		Fallback:  approximate,
	}
	s.Vitals[name] = vital
	s.LastSeen = now
	if vital.Rating == RatingPoor && c.Sink != nil {
		c.Sink(CriticalReport{
			Type:      "critical_metric",
			Timestamp: vital.Timestamp,
			SessionID: s.ID,
			Metric:    name,
			Value:     value,
			Rating:    RatingPoor,
			URL:       s.URL,
			UserAgent: s.UserAgent,
		})
	}
	return vital
}

// RecordNavigation 写入导航指标，并以 load 事件与首字节时间补充近似 LCP 与 TTFB。
func (c *Collector) RecordNavigation(s *Session, nav NavigationTiming) {
	now := c.now()
	s.Navigation = &NavigationMetrics{
		DOMContentLoaded: nav.DOMContentLoadedEventEnd - nav.DOMContentLoadedEventStart,
		LoadComplete:     nav.LoadEventEnd - nav.LoadEventStart,
		FirstByte:        nav.ResponseStart - nav.RequestStart,
		DOMInteractive:   nav.DOMInteractive - nav.FetchStart,
		Timestamp:        now.UnixMilli(),
	}
	s.LastSeen = now
	if existing, ok := s.Vitals[VitalLCP]; !ok || existing.Fallback {
		c.RecordWebVital(s, VitalLCP, nav.LoadEventEnd-nav.LoadEventStart, true)
	}
	if existing, ok := s.Vitals[VitalTTFB]; !ok || existing.Fallback {
		c.RecordWebVital(s, VitalTTFB, nav.ResponseStart-nav.RequestStart, true)
	}
}

// AnalyzeResources 标记耗时超过 SlowResource 或体积超过 LargeResource 的资源。
func (c *Collector) AnalyzeResources(s *Session, resources []ResourceTiming) ResourceAnalysis {
	slow := float64(c.SlowResource.Milliseconds())
	analysis := ResourceAnalysis{
		TotalResources:  len(resources),
		SlowResources:   []ResourceIssue{},
		LargeResources:  []ResourceIssue{},
		FailedResources: []ResourceIssue{},
	}
	for _, r := range resources {
		duration := r.ResponseEnd - r.StartTime
		issue := ResourceIssue{Name: r.Name, Duration: duration, Size: r.TransferSize}
		if duration > slow {
			analysis.SlowResources = append(analysis.SlowResources, issue)
		}
		if r.TransferSize > c.LargeResource {
			analysis.LargeResources = append(analysis.LargeResources, issue)
		}
		if r.TransferSize < 0 {
			analysis.FailedResources = append(analysis.FailedResources, issue)
		}
	}
	s.Resources = &analysis
	s.LastSeen = c.now()
	return analysis
}

// RecordInteraction 计数点击与按键。
func (c *Collector) RecordInteraction(s *Session) {
	s.Engagement.Interactions++
	s.LastSeen = c.now()
}

// RecordScroll 更新最大滚动深度；可滚动高度不为正时忽略。
func (c *Collector) RecordScroll(s *Session, scrollY, scrollHeight, innerHeight float64) {
	s.LastSeen = c.now()
	scrollable := scrollHeight - innerHeight
	if scrollable <= 0 {
		return
	}
	depth := int(math.Round(scrollY / scrollable * 100))
	if depth > 100 {
		depth = 100
	}
	if depth > s.Engagement.MaxScrollDepth {
		s.Engagement.MaxScrollDepth = depth
	}
}

// UpdateTimeOnPage 以会话开始时间计算停留时长（毫秒）。
func (c *Collector) UpdateTimeOnPage(s *Session, now time.Time) {
	if elapsed := now.Sub(s.StartedAt).Milliseconds(); elapsed > s.Engagement.TimeOnPage {
		s.Engagement.TimeOnPage = elapsed
	}
	s.LastSeen = now
}
