package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// 浏览器上报的事件类型。
const (
	EventInteraction = "interaction"
	EventScroll      = "scroll"
	EventTick        = "tick"
	EventUnload      = "unload"
	EventVital       = "vital"
	EventNavigation  = "navigation"
	EventResources   = "resources"
	EventSEO         = "seo"
)

// DefaultIdleTimeout 之后未活动的会话在投递后被移除。
const DefaultIdleTimeout = 30 * time.Minute

var (
	// ErrUnknownEvent 表示事件类型不受支持。
	ErrUnknownEvent = errors.New("unknown metrics event")
	// ErrInvalidEvent 表示事件缺少必要字段。
	ErrInvalidEvent = errors.New("invalid metrics event")
)

// Event 是 /api/seo-metrics/events 的请求体。
type Event struct {
	SessionID    string            `json:"sessionId"`
	Type         string            `json:"type"`
	URL          string            `json:"url"`
	UserAgent    string            `json:"userAgent"`
	Viewport     Viewport          `json:"viewport"`
	Timestamp    int64             `json:"timestamp"`
	Name         string            `json:"name,omitempty"`
	Value        float64           `json:"value,omitempty"`
	Approximate  bool              `json:"approximate,omitempty"`
	ScrollY      float64           `json:"scrollY,omitempty"`
	ScrollHeight float64           `json:"scrollHeight,omitempty"`
	InnerHeight  float64           `json:"innerHeight,omitempty"`
	Navigation   *NavigationTiming `json:"navigation,omitempty"`
	Resources    []ResourceTiming  `json:"resources,omitempty"`
	Checks       map[string]bool   `json:"checks,omitempty"`
}

// Tracker 以会话 id 保存进行中的会话，并发安全。
type Tracker struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	collector *Collector
	idle      time.Duration
}

// NewTracker 创建空的会话表。
func NewTracker(collector *Collector) *Tracker {
	if collector == nil {
		collector = NewCollector(nil)
	}
	return &Tracker{
		sessions:  make(map[string]*Session),
		collector: collector,
		idle:      DefaultIdleTimeout,
	}
}

// Collector 返回 Tracker 使用的采集器。
func (t *Tracker) Collector() *Collector {
	return t.collector
}

// Apply 将事件写入对应会话，不存在时创建。
func (t *Tracker) Apply(ev Event) error {
	if ev.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidEvent)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[ev.SessionID]
	if !ok {
		s = NewSession(ev.SessionID, ev.URL, ev.UserAgent, ev.Viewport, t.collector.now())
	}
	if ev.Viewport.Width > 0 {
		s.Viewport = ev.Viewport
	}

	c := t.collector
	switch ev.Type {
	case EventInteraction:
		c.RecordInteraction(s)
	case EventScroll:
		c.RecordScroll(s, ev.ScrollY, ev.ScrollHeight, ev.InnerHeight)
	case EventTick:
		c.UpdateTimeOnPage(s, c.now())
	case EventUnload:
		c.UpdateTimeOnPage(s, c.now())
		s.Ended = true
	case EventVital:
		if ev.Name == "" {
			return fmt.Errorf("%w: vital name is required", ErrInvalidEvent)
		}
		c.RecordWebVital(s, ev.Name, ev.Value, ev.Approximate)
	case EventNavigation:
		if ev.Navigation == nil {
			return fmt.Errorf("%w: navigation timing is required", ErrInvalidEvent)
		}
		c.RecordNavigation(s, *ev.Navigation)
	case EventResources:
		c.AnalyzeResources(s, ev.Resources)
	case EventSEO:
		health := HealthFromChecks(ev.Checks)
		s.Health = &health
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	t.sessions[ev.SessionID] = s
	return nil
}

// Add 直接登记一个会话，供探测器使用。
func (t *Tracker) Add(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID] = s
}

// Len 返回当前会话数量。
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Reports 在锁内为全部会话生成报告快照。
func (t *Tracker) Reports(now time.Time) []Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	reports := make([]Report, 0, len(t.sessions))
	for _, s := range t.sessions {
		reports = append(reports, BuildReport(s, now))
	}
	return reports
}

// Release 移除已投递且已结束或空闲超时的会话，返回移除数量。
func (t *Tracker) Release(delivered []string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for _, id := range delivered {
		s, ok := t.sessions[id]
		if !ok {
			continue
		}
		if s.Ended || now.Sub(s.LastSeen) > t.idle {
			delete(t.sessions, id)
			removed++
		}
	}
	return removed
}

// HealthFromChecks 只统计已知的十项检查，未上报的视为未通过。
func HealthFromChecks(checks map[string]bool) HealthResult {
	normalized := make(map[string]bool, len(CheckNames))
	passed := 0
	for _, name := range CheckNames {
		normalized[name] = checks[name]
		if checks[name] {
			passed++
		}
	}
	return HealthResult{Checks: normalized, Score: scoreOf(passed)}
}
