package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const probePage = `<!DOCTYPE html>
<html><head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LeafTok</title>
<meta name="description" content="AI-powered reading app that transforms books into intelligent, swipeable cards.">
<link rel="canonical" href="https://leaftok.app/">
<link rel="alternate" hreflang="en" href="https://leaftok.app/">
<meta property="og:title" content="LeafTok">
<link rel="stylesheet" href="/assets/site.css">
<script type="application/ld+json">{"@type":"Organization"}</script>
<script src="/assets/missing.js"></script>
</head><body>
<h1>LeafTok</h1>
<img src="/assets/hero.png" alt="hero">
<img src="data:image/png;base64,AAAA" alt="inline">
<img src="/assets/hero.png#again" alt="hero again">
</body></html>`

func newProbeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(probePage))
	})
	mux.HandleFunc("/assets/site.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/assets/hero.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2097152")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeRun(t *testing.T) {
	srv := newProbeServer(t)
	probe := NewProbe(srv.Client(), NewCollector(nil), 2, nil)

	s, err := probe.Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	require.NotNil(t, s.Health)
	assert.Equal(t, 90, s.Health.Score)
	assert.Equal(t, []string{CheckHTTPS}, s.Health.Failed())

	assert.True(t, s.Vitals[VitalTTFB].Fallback)
	assert.True(t, s.Vitals[VitalLCP].Fallback)
	require.NotNil(t, s.Navigation)

	require.NotNil(t, s.Resources)
	assert.Equal(t, 3, s.Resources.TotalResources)
	require.Len(t, s.Resources.LargeResources, 1)
	assert.Equal(t, srv.URL+"/assets/hero.png", s.Resources.LargeResources[0].Name)
	require.Len(t, s.Resources.FailedResources, 1)
	assert.Equal(t, srv.URL+"/assets/missing.js", s.Resources.FailedResources[0].Name)
	assert.True(t, strings.HasPrefix(s.UserAgent, "leaftok-site/"))
}

func TestProbeRunErrorStatus(t *testing.T) {
	srv := newProbeServer(t)
	_, err := NewProbe(srv.Client(), nil, 1, nil).Run(context.Background(), srv.URL+"/nope")
	require.Error(t, err)
}

func TestResourceURLsDedupesAndResolves(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(probePage))
	require.NoError(t, err)
	base, _ := url.Parse("https://leaftok.app/books/")
	assert.Equal(t, []string{
		"https://leaftok.app/assets/site.css",
		"https://leaftok.app/assets/missing.js",
		"https://leaftok.app/assets/hero.png",
	}, ResourceURLs(doc, base))
}
