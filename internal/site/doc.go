// Package site renders the static marketing site from the content
// repository: home, books index, category, book summary, author, topic,
// changelog, privacy and 404 pages, plus sitemap.xml and robots.txt.
//
// Pages are rendered in parallel into an afero.Fs; every directory path is
// written as <path>/index.html so the same tree can be served by the cache
// router's filesystem origin or any static host.
package site
