// Package metrics collects page performance and SEO health data.
//
// A Session is an explicitly owned record for one page view. Collector
// methods mutate a session (web vitals, navigation timing, resource
// analysis, engagement) and hand poor vitals to a CriticalSink right away.
// Tracker keeps sessions fed by the /api/seo-metrics/events endpoint,
// Reporter periodically turns them into Reports for a Sender, and Probe
// produces the same data server-side by fetching a page over HTTP.
package metrics
