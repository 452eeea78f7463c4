package metrics

import (
	"io"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 十项 SEO 检查的名称，顺序即输出顺序。
const (
	CheckTitle            = "hasTitle"
	CheckMetaDescription  = "hasMetaDescription"
	CheckStructuredData   = "hasStructuredData"
	CheckOpenGraph        = "hasOpenGraph"
	CheckCanonical        = "hasCanonical"
	CheckHreflang         = "hasHreflang"
	CheckAltTags          = "hasAltTags"
	CheckHeadingStructure = "hasHeadingStructure"
	CheckMobileViewport   = "mobileViewport"
	CheckHTTPS            = "httpsEnabled"
)

// CheckNames 按固定顺序列出全部检查。
var CheckNames = []string{
	CheckTitle,
	CheckMetaDescription,
	CheckStructuredData,
	CheckOpenGraph,
	CheckCanonical,
	CheckHreflang,
	CheckAltTags,
	CheckHeadingStructure,
	CheckMobileViewport,
	CheckHTTPS,
}

var checkAdvice = map[string]string{
	CheckTitle:            "Add a descriptive title tag to your page",
	CheckMetaDescription:  "Add a meta description of at least 50 characters",
	CheckStructuredData:   "Add structured data markup for better search visibility",
	CheckOpenGraph:        "Add Open Graph meta tags for better social media sharing",
	CheckCanonical:        "Add a canonical URL to avoid duplicate content issues",
	CheckHreflang:         "Add hreflang tags for international SEO",
	CheckAltTags:          "Add alt attributes to all images for accessibility and SEO",
	CheckHeadingStructure: "Use exactly one H1 tag per page",
	CheckMobileViewport:   "Add proper viewport meta tag for mobile optimization",
	CheckHTTPS:            "Enable HTTPS for security and SEO benefits",
}

func checkRecommendation(name string) string {
	if msg, ok := checkAdvice[name]; ok {
		return msg
	}
	return "Fix this SEO issue for better search visibility"
}

const (
	minDescriptionLength = 50
	altCoverageRatio     = 0.9
)

// HealthResult 是十项检查结果与百分制得分。
type HealthResult struct {
	Checks map[string]bool `json:"checks"`
	Score  int             `json:"score"`
}

// Failed 按固定顺序返回未通过的检查。
func (h HealthResult) Failed() []string {
	out := make([]string, 0)
	for _, name := range CheckNames {
		if !h.Checks[name] {
			out = append(out, name)
		}
	}
	return out
}

type pageFacts struct {
	title          string
	description    string
	hasDescription bool
	ldJSON         int
	openGraph      bool
	canonical      bool
	hreflang       int
	images         int
	imagesWithAlt  int
	h1             int
	viewport       string
}

// ParseHealth 解析 HTML 后执行 CheckHealth。
func ParseHealth(r io.Reader, pageURL string) (HealthResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return HealthResult{}, err
	}
	return CheckHealth(doc, pageURL), nil
}

// CheckHealth 对解析后的文档执行十项检查，得分为 round(通过数/10*100)。
func CheckHealth(doc *html.Node, pageURL string) HealthResult {
	var facts pageFacts
	collectFacts(doc, &facts)

	u, err := url.Parse(pageURL)
	https := err == nil && strings.EqualFold(u.Scheme, "https")

	checks := map[string]bool{
		CheckTitle:            strings.TrimSpace(facts.title) != "",
		CheckMetaDescription:  facts.hasDescription && utf8.RuneCountInString(facts.description) > minDescriptionLength,
		CheckStructuredData:   facts.ldJSON > 0,
		CheckOpenGraph:        facts.openGraph,
		CheckCanonical:        facts.canonical,
		CheckHreflang:         facts.hreflang > 0,
		CheckAltTags:          facts.images == 0 || float64(facts.imagesWithAlt)/float64(facts.images) > altCoverageRatio,
		CheckHeadingStructure: facts.h1 == 1,
		CheckMobileViewport:   strings.Contains(facts.viewport, "width=device-width"),
		CheckHTTPS:            https,
	}
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	return HealthResult{Checks: checks, Score: scoreOf(passed)}
}

func scoreOf(passed int) int {
	return int(math.Round(float64(passed) / float64(len(CheckNames)) * 100))
}

func collectFacts(n *html.Node, f *pageFacts) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Title:
			if f.title == "" {
				f.title = textContent(n)
			}
		case atom.Meta:
			name := strings.ToLower(attr(n, "name"))
			switch name {
			case "description":
				if !f.hasDescription {
					f.hasDescription = true
					f.description = attr(n, "content")
				}
			case "viewport":
				if f.viewport == "" {
					f.viewport = attr(n, "content")
				}
			}
			if strings.HasPrefix(attr(n, "property"), "og:") {
				f.openGraph = true
			}
		case atom.Link:
			if hasToken(attr(n, "rel"), "canonical") {
				f.canonical = true
			}
			if _, ok := lookupAttr(n, "hreflang"); ok {
				f.hreflang++
			}
		case atom.Script:
			if strings.EqualFold(strings.TrimSpace(attr(n, "type")), "application/ld+json") {
				f.ldJSON++
			}
		case atom.Img:
			f.images++
			if _, ok := lookupAttr(n, "alt"); ok {
				f.imagesWithAlt++
			}
		case atom.H1:
			f.h1++
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectFacts(c, f)
	}
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func hasToken(list, token string) bool {
	for _, field := range strings.Fields(strings.ToLower(list)) {
		if field == token {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
