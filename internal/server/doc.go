// Package server hosts the Fiber HTTP service for the generated site: the
// request-id and recover middleware chain, the catch-all route that hands page
// and asset requests to the cache strategy router, and the shared upstream
// http.Client used by origins, report delivery and page probes. Local surfaces
// (/-/ diagnostics and /api/seo-metrics ingestion) are registered by the routes
// subpackage and bypass the router.
package server
