package seo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leaftok/leaftok-site/internal/config"
	"github.com/leaftok/leaftok-site/internal/content"
)

// Image 是 Open Graph 图片。
type Image struct {
	URL    string
	Width  int
	Height int
	Alt    string
}

// OpenGraph 对应 og:* 标签。
type OpenGraph struct {
	Title       string
	Description string
	URL         string
	Type        string
	Images      []Image
}

// Twitter 对应 twitter:* 标签。
type Twitter struct {
	Card        string
	Title       string
	Description string
	Images      []string
}

// Alternate 是一条 hreflang 链接。
type Alternate struct {
	Hreflang string
	URL      string
}

// Metadata 是单个页面 <head> 需要的全部信息。
type Metadata struct {
	Title       string
	Description string
	Keywords    []string
	Canonical   string
	OpenGraph   OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	NoIndex     bool
}

// Generator 以站点配置为上下文生成元数据与结构化数据。
type Generator struct {
	site config.SiteConfig
}

// New 创建 Generator；URL 末尾的斜杠会被去掉。
func New(site config.SiteConfig) *Generator {
	site.URL = strings.TrimSuffix(site.URL, "/")
	return &Generator{site: site}
}

// Site 返回当前站点配置。
func (g *Generator) Site() config.SiteConfig {
	return g.site
}

// AbsURL 将站内路径转为绝对地址；已是 http(s) 地址时原样返回。
func (g *Generator) AbsURL(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return g.site.URL + p
}

// PageTitle 返回 <title> 文本，统一追加站点名后缀。
func (g *Generator) PageTitle(m Metadata) string {
	if m.Title == "" {
		return g.site.Name
	}
	if strings.Contains(m.Title, g.site.Name) {
		return m.Title
	}
	return m.Title + " | " + g.site.Name
}

func (g *Generator) finish(m Metadata, path string) Metadata {
	m.Canonical = g.AbsURL(path)
	if m.OpenGraph.URL == "" {
		m.OpenGraph.URL = m.Canonical
	}
	if m.OpenGraph.Title == "" {
		m.OpenGraph.Title = m.Title
	}
	if m.OpenGraph.Description == "" {
		m.OpenGraph.Description = m.Description
	}
	if m.OpenGraph.Type == "" {
		m.OpenGraph.Type = "website"
	}
	if m.Twitter.Card == "" {
		m.Twitter.Card = "summary"
	}
	if m.Twitter.Title == "" {
		m.Twitter.Title = m.Title
	}
	if m.Twitter.Description == "" {
		m.Twitter.Description = m.Description
	}
	m.Alternates = g.alternates(m.Canonical)
	return m
}

// alternates 第一个语言使用规范地址，其余语言追加 ?lang=。
func (g *Generator) alternates(canonical string) []Alternate {
	out := make([]Alternate, 0, len(g.site.Locales)+1)
	for i, locale := range g.site.Locales {
		href := canonical
		if i > 0 {
			href = canonical + "?lang=" + url.QueryEscape(locale)
		}
		out = append(out, Alternate{Hreflang: locale, URL: href})
	}
	return append(out, Alternate{Hreflang: "x-default", URL: canonical})
}

// HomeMetadata 首页。
func (g *Generator) HomeMetadata() Metadata {
	return g.finish(Metadata{
		Title:       fmt.Sprintf("%s - Transform Books into Swipeable Knowledge Cards", g.site.Name),
		Description: Truncate(g.site.Description+" Read smarter with AI-generated cards from your PDFs and EPUBs, offline and on the go.", DescriptionLimit),
		Keywords:    []string{"ai reading app", "book summaries", "swipeable cards", "epub reader", "pdf reader"},
		Twitter:     Twitter{Card: "summary_large_image"},
		OpenGraph:   OpenGraph{Images: []Image{{URL: g.AbsURL("/assets/logo.png"), Width: 512, Height: 512, Alt: g.site.Name + " logo"}}},
	}, "/")
}

// BooksIndexMetadata 书籍总目录。
func (g *Generator) BooksIndexMetadata(categoryCount int) Metadata {
	return g.finish(Metadata{
		Title:       "Book Summaries - Key Takeaways from the Best Books",
		Description: Truncate(fmt.Sprintf("Browse book summaries across %d categories. Key insights, main concepts and actionable takeaways you can read in minutes with %s.", categoryCount, g.site.Name), DescriptionLimit),
		Keywords:    []string{"book summaries", "key takeaways", "book reviews", "reading list"},
	}, "/books/")
}

// BookMetadata 书籍摘要页。
func (g *Generator) BookMetadata(book content.Book, category content.Category) Metadata {
	title := UniqueTitle(book.Title, PageBookSummary, "")
	description := Truncate(fmt.Sprintf(
		"Read our comprehensive summary of %q by %s. Discover key insights, main concepts, and actionable takeaways from this %s book.",
		book.Title, book.Author.Name, category.Name), DescriptionLimit)
	m := Metadata{
		Title:       title,
		Description: description,
		Keywords: []string{
			book.Title + " summary",
			book.Title + " key takeaways",
			book.Author.Name + " books",
			strings.ToLower(category.Name),
			"book summary",
			"book review",
		},
		OpenGraph: OpenGraph{
			Title: fmt.Sprintf("%s - Summary & Key Insights | %s", book.Title, g.site.Name),
			Type:  "article",
		},
		Twitter: Twitter{Card: "summary_large_image"},
	}
	if book.CoverImage != "" {
		m.OpenGraph.Images = []Image{{URL: book.CoverImage, Width: 600, Height: 900, Alt: book.Title + " book cover"}}
		m.Twitter.Images = []string{book.CoverImage}
	}
	return g.finish(m, BookPath(category.Slug, book.Slug))
}

// AuthorMetadata 作者页。
func (g *Generator) AuthorMetadata(author content.Author) Metadata {
	m := Metadata{
		Title: UniqueTitle(author.Name, PageAuthorProfile, ""),
		Description: Truncate(fmt.Sprintf(
			"Explore all books by %s. Read summaries, discover key insights, and find your next great read from this acclaimed author.",
			author.Name), DescriptionLimit),
		Keywords: []string{
			author.Name + " books",
			author.Name + " author",
			author.Name + " bibliography",
			"book author",
		},
		OpenGraph: OpenGraph{
			Title: fmt.Sprintf("%s - Author Profile & Book Summaries | %s", author.Name, g.site.Name),
			Type:  "profile",
		},
	}
	if author.Image != "" {
		m.OpenGraph.Images = []Image{{URL: author.Image, Width: 400, Height: 400, Alt: author.Name + " photo"}}
	}
	return g.finish(m, AuthorPath(author.Slug))
}

// CategoryMetadata 分类页。
func (g *Generator) CategoryMetadata(category content.Category) Metadata {
	lower := strings.ToLower(category.Name)
	return g.finish(Metadata{
		Title: UniqueTitle(category.Name, PageCategoryHub, ""),
		Description: Truncate(fmt.Sprintf(
			"Discover the best %s books with our comprehensive summaries. Browse %d+ book summaries with key takeaways and insights.",
			lower, category.BookCount), DescriptionLimit),
		Keywords: []string{
			lower + " books",
			"best " + lower + " books",
			lower + " book summaries",
			"book recommendations",
		},
		OpenGraph: OpenGraph{Title: fmt.Sprintf("%s Book Summaries & Reviews | %s", category.Name, g.site.Name)},
	}, CategoryPath(category.Slug))
}

// TopicMetadata 主题页。
func (g *Generator) TopicMetadata(topic content.Topic) Metadata {
	lower := strings.ToLower(topic.Name)
	return g.finish(Metadata{
		Title: UniqueTitle(topic.Name, PageTopicHub, ""),
		Description: Truncate(fmt.Sprintf(
			"Explore the best books about %s. Read summaries, discover key insights, and accelerate your learning with our curated collection.",
			lower), DescriptionLimit),
		Keywords: []string{
			lower + " books",
			"books about " + lower,
			lower + " reading list",
			"topic books",
		},
		OpenGraph: OpenGraph{Title: fmt.Sprintf("%s - Curated Book Collection | %s", topic.Name, g.site.Name)},
	}, TopicPath(topic.Slug))
}

// ArticleMetadata 文章类页面。
func (g *Generator) ArticleMetadata(a Article) Metadata {
	m := Metadata{
		Title:       a.Title,
		Description: Truncate(a.Description, DescriptionLimit),
		OpenGraph:   OpenGraph{Description: a.Description, Type: "article"},
		Twitter:     Twitter{Card: "summary_large_image", Description: Truncate(a.Description, 200)},
	}
	if a.Image != "" {
		m.OpenGraph.Images = []Image{{URL: a.Image, Width: 1200, Height: 630, Alt: a.Title}}
		m.Twitter.Images = []string{a.Image}
	}
	return g.finish(m, a.path())
}

// LegalMetadata 用于隐私政策等说明性页面。
func (g *Generator) LegalMetadata(title, description, path string) Metadata {
	return g.finish(Metadata{
		Title:       UniqueTitle(title, PageLegal, ""),
		Description: Truncate(description, DescriptionLimit),
	}, path)
}

// NotFoundMetadata 404 页不参与索引。
func (g *Generator) NotFoundMetadata() Metadata {
	m := g.finish(Metadata{
		Title:       "Page Not Found",
		Description: fmt.Sprintf("The page you are looking for does not exist. Browse book summaries or download the %s app to keep reading.", g.site.Name),
	}, "/404.html")
	m.NoIndex = true
	return m
}

// BookPath 等函数给出生成站点中的目录路径。
func BookPath(category, slug string) string { return "/books/" + category + "/" + slug + "/" }

func CategoryPath(slug string) string { return "/books/" + slug + "/" }

func AuthorPath(slug string) string { return "/authors/" + slug + "/" }

func TopicPath(slug string) string { return "/topics/" + slug + "/" }
