package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerAppliesEvents(t *testing.T) {
	var alerts int
	tracker := NewTracker(newTestCollector(func(CriticalReport) { alerts++ }))

	base := Event{SessionID: "abc", URL: "https://leaftok.app/", UserAgent: "ua", Viewport: Viewport{Width: 390, Height: 844}}
	apply := func(mutate func(*Event)) {
		ev := base
		mutate(&ev)
		require.NoError(t, tracker.Apply(ev))
	}
	apply(func(e *Event) { e.Type = EventInteraction })
	apply(func(e *Event) { e.Type = EventScroll; e.ScrollY = 250; e.ScrollHeight = 1500; e.InnerHeight = 1000 })
	apply(func(e *Event) { e.Type = EventVital; e.Name = VitalFID; e.Value = 450 })
	apply(func(e *Event) {
		e.Type = EventNavigation
		e.Navigation = &NavigationTiming{RequestStart: 0, ResponseStart: 100, LoadEventStart: 0, LoadEventEnd: 500}
	})
	apply(func(e *Event) {
		e.Type = EventResources
		e.Resources = []ResourceTiming{{Name: "a.css", ResponseEnd: 10}}
	})
	apply(func(e *Event) { e.Type = EventSEO; e.Checks = map[string]bool{CheckTitle: true} })
	apply(func(e *Event) { e.Type = EventUnload })

	assert.Equal(t, 1, tracker.Len())
	assert.Equal(t, 1, alerts)

	reports := tracker.Reports(testNow)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "abc", r.SessionID)
	assert.Equal(t, 1, r.Metrics.UserEngagement.Interactions)
	assert.Equal(t, 50, r.Metrics.UserEngagement.MaxScrollDepth)
	assert.Equal(t, RatingPoor, r.Metrics.CoreWebVitals[VitalFID].Rating)
	assert.True(t, r.Metrics.CoreWebVitals[VitalLCP].Fallback)
	assert.Equal(t, 10, r.Metrics.SEOScore)
	require.NotNil(t, r.Metrics.PerformanceMetrics.Resources)
}

func TestTrackerRejectsBadEvents(t *testing.T) {
	tracker := NewTracker(nil)
	assert.True(t, errors.Is(tracker.Apply(Event{Type: EventTick}), ErrInvalidEvent))
	assert.True(t, errors.Is(tracker.Apply(Event{SessionID: "a", Type: "bogus"}), ErrUnknownEvent))
	assert.True(t, errors.Is(tracker.Apply(Event{SessionID: "a", Type: EventVital}), ErrInvalidEvent))
	assert.True(t, errors.Is(tracker.Apply(Event{SessionID: "a", Type: EventNavigation}), ErrInvalidEvent))
	assert.Equal(t, 0, tracker.Len())
}

func TestTrackerReleaseOnlyFinishedSessions(t *testing.T) {
	tracker := NewTracker(newTestCollector(nil))
	require.NoError(t, tracker.Apply(Event{SessionID: "done", Type: EventUnload}))
	require.NoError(t, tracker.Apply(Event{SessionID: "active", Type: EventTick}))
	require.NoError(t, tracker.Apply(Event{SessionID: "undelivered", Type: EventUnload}))

	removed := tracker.Release([]string{"done", "active"}, testNow)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, tracker.Len())

	removed = tracker.Release([]string{"active"}, testNow.Add(DefaultIdleTimeout+time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tracker.Len())
}

func TestTrackerUnloadEndsSession(t *testing.T) {
	tracker := NewTracker(newTestCollector(nil))
	require.NoError(t, tracker.Apply(Event{SessionID: "page", Type: EventTick}))
	assert.Equal(t, 0, tracker.Release([]string{"page"}, testNow))

	require.NoError(t, tracker.Apply(Event{SessionID: "page", Type: EventUnload}))
	reports := tracker.Reports(testNow)
	require.Len(t, reports, 1)
	assert.Equal(t, "page", reports[0].SessionID)

	assert.Equal(t, 1, tracker.Release([]string{"page"}, testNow))
	assert.Equal(t, 0, tracker.Len())
	assert.Equal(t, 0, tracker.Release([]string{"page"}, testNow))
}
