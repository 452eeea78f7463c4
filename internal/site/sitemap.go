package site

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leaftok/leaftok-site/internal/content"
	"github.com/leaftok/leaftok-site/internal/seo"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// 更新频率。
const (
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// SitemapEntry 对应 <url> 元素。
type SitemapEntry struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name       `xml:"urlset"`
	XMLNS   string         `xml:"xmlns,attr"`
	URLs    []SitemapEntry `xml:"url"`
}

// SitemapEntries 按固定顺序列出所有页面：静态页、分类、书籍、作者、主题。
func SitemapEntries(g *seo.Generator, repo *content.Repository, now time.Time) []SitemapEntry {
	lastMod := now.UTC().Format("2006-01-02")
	entry := func(path, freq string, priority float64) SitemapEntry {
		return SitemapEntry{Loc: g.AbsURL(path), LastMod: lastMod, ChangeFreq: freq, Priority: priority}
	}

	entries := []SitemapEntry{
		entry("/", FreqWeekly, 1.0),
		entry("/privacy/", FreqMonthly, 0.3),
		entry("/changelog/", FreqWeekly, 0.5),
		entry("/books/", FreqWeekly, 0.9),
	}
	for _, category := range repo.ListCategories() {
		entries = append(entries, entry(seo.CategoryPath(category.Slug), FreqWeekly, 0.8))
	}
	for _, key := range repo.ListBookKeys() {
		entries = append(entries, entry(seo.BookPath(key.Category, key.Slug), FreqMonthly, 0.7))
	}
	for _, slug := range repo.ListAuthorKeys() {
		entries = append(entries, entry(seo.AuthorPath(slug), FreqMonthly, 0.6))
	}
	for _, slug := range repo.ListTopicKeys() {
		entries = append(entries, entry(seo.TopicPath(slug), FreqMonthly, 0.6))
	}
	return entries
}

// WriteSitemap 输出 sitemaps.org 0.9 格式。
func WriteSitemap(w io.Writer, entries []SitemapEntry) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet{XMLNS: sitemapNamespace, URLs: entries}); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// RobotsTxt 允许全部抓取并指向 sitemap。
func RobotsTxt(siteURL string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /-/\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", strings.TrimSuffix(siteURL, "/"))
	return b.String()
}
