package seo

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/leaftok/leaftok-site/internal/content"
)

const schemaContext = "https://schema.org"

// Schema 是一个 schema.org JSON-LD 对象。
type Schema map[string]any

// JSON 序列化为可直接嵌入 <script type="application/ld+json"> 的文本。
func (s Schema) JSON() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Type 返回 @type。
func (s Schema) Type() string {
	t, _ := s["@type"].(string)
	return t
}

func newSchema(kind string) Schema {
	return Schema{"@context": schemaContext, "@type": kind}
}

func typed(kind string, fields map[string]any) map[string]any {
	out := map[string]any{"@type": kind}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Article 描述一篇文章；URL 为空时使用 /blog/<slug>/。
type Article struct {
	Title       string
	Description string
	Slug        string
	URL         string
	Image       string
	PublishedAt time.Time
	ModifiedAt  time.Time
	Author      string
	WordCount   int
}

func (a Article) path() string {
	if a.URL != "" {
		return a.URL
	}
	return "/blog/" + a.Slug + "/"
}

// ListItem 是 ItemList 中的一项。
type ListItem struct {
	Name     string
	URL      string
	Position int
}

func (g *Generator) twitterProfile(handle string) string {
	return "https://twitter.com/" + strings.TrimPrefix(handle, "@")
}

func (g *Generator) publisher() map[string]any {
	return typed("Organization", map[string]any{"name": g.site.Name, "url": g.site.URL})
}

// OrganizationSchema 站点组织信息。
func (g *Generator) OrganizationSchema() Schema {
	s := newSchema("Organization")
	s["name"] = g.site.Name
	s["url"] = g.site.URL
	s["logo"] = g.AbsURL("/assets/logo.png")
	s["description"] = g.site.Description
	s["founder"] = typed("Person", map[string]any{"name": g.site.AuthorName, "url": g.site.AuthorURL})
	if g.site.Twitter != "" {
		s["sameAs"] = []string{g.twitterProfile(g.site.Twitter)}
	}
	return s
}

// SoftwareApplicationSchema 描述移动应用本身。
func (g *Generator) SoftwareApplicationSchema() Schema {
	s := newSchema("SoftwareApplication")
	s["name"] = g.site.Name
	s["description"] = g.site.Description
	s["url"] = g.site.URL
	s["applicationCategory"] = "EducationalApplication"
	s["applicationSubCategory"] = "EReader"
	s["operatingSystem"] = []string{"iOS", "Android"}
	s["offers"] = typed("Offer", map[string]any{"price": "0", "priceCurrency": "USD"})
	s["author"] = typed("Person", map[string]any{"name": g.site.AuthorName, "url": g.site.AuthorURL})
	s["publisher"] = g.publisher()
	s["aggregateRating"] = typed("AggregateRating", map[string]any{"ratingValue": "5.0", "ratingCount": "30"})
	s["downloadUrl"] = []string{g.site.IOSURL, g.site.AndroidURL}
	s["screenshot"] = g.AbsURL("/assets/screenshot.png")
	s["featureList"] = []string{
		"AI-powered content transformation",
		"PDF and EPUB support",
		"Swipeable card-based reading",
		"Progress tracking",
		"Offline reading",
		"Spaced repetition learning",
	}
	return s
}

// WebSiteSchema 带站内搜索入口。
func (g *Generator) WebSiteSchema() Schema {
	s := newSchema("WebSite")
	s["name"] = g.site.Name
	s["url"] = g.site.URL
	s["description"] = g.site.Description
	s["publisher"] = g.publisher()
	s["potentialAction"] = typed("SearchAction", map[string]any{
		"target":      typed("EntryPoint", map[string]any{"urlTemplate": g.AbsURL("/books/?q={search_term_string}")}),
		"query-input": "required name=search_term_string",
	})
	return s
}

// BookSchema 书籍摘要页的 Book 对象，可选字段仅在存在时输出。
func (g *Generator) BookSchema(book content.Book, categoryName string) Schema {
	s := newSchema("Book")
	s["name"] = book.Title
	s["description"] = book.Description
	s["author"] = typed("Person", map[string]any{"name": book.Author.Name, "url": g.AbsURL(AuthorPath(book.Author.Slug))})
	s["genre"] = categoryName
	s["url"] = g.AbsURL(BookPath(book.Category.Slug, book.Slug))
	if book.ISBN != "" {
		s["isbn"] = book.ISBN
	}
	if book.PublishedYear != 0 {
		s["datePublished"] = strconv.Itoa(book.PublishedYear)
	}
	if book.PageCount != 0 {
		s["numberOfPages"] = book.PageCount
	}
	if book.CoverImage != "" {
		s["image"] = book.CoverImage
	}
	if book.Rating != nil {
		s["aggregateRating"] = typed("AggregateRating", map[string]any{
			"ratingValue": strconv.FormatFloat(book.Rating.Value, 'f', -1, 64),
			"ratingCount": strconv.Itoa(book.Rating.Count),
		})
	}
	return s
}

// ReviewSchema 将摘要作为对书籍的评论，body 应为已去除标记的纯文本摘要。
func (g *Generator) ReviewSchema(book content.Book, body string) Schema {
	s := newSchema("Review")
	s["itemReviewed"] = typed("Book", map[string]any{
		"name":   book.Title,
		"author": typed("Person", map[string]any{"name": book.Author.Name}),
	})
	s["reviewBody"] = body
	s["author"] = typed("Organization", map[string]any{"name": g.site.Name})
	s["publisher"] = typed("Organization", map[string]any{"name": g.site.Name})
	s["url"] = g.AbsURL(BookPath(book.Category.Slug, book.Slug))
	return s
}

// PersonSchema 作者页。
func (g *Generator) PersonSchema(author content.Author) Schema {
	s := newSchema("Person")
	s["name"] = author.Name
	s["description"] = author.Bio
	s["url"] = g.AbsURL(AuthorPath(author.Slug))
	if author.Image != "" {
		s["image"] = author.Image
	}
	if links := author.SocialLinks; links != nil {
		sameAs := make([]string, 0, 3)
		if links.Website != "" {
			sameAs = append(sameAs, links.Website)
		}
		if links.Twitter != "" {
			sameAs = append(sameAs, g.twitterProfile(links.Twitter))
		}
		if links.LinkedIn != "" {
			sameAs = append(sameAs, links.LinkedIn)
		}
		if len(sameAs) > 0 {
			s["sameAs"] = sameAs
		}
	}
	return s
}

// FAQPageSchema 问答列表。
func (g *Generator) FAQPageSchema(faqs []content.FAQ) Schema {
	entities := make([]map[string]any, 0, len(faqs))
	for _, faq := range faqs {
		entities = append(entities, typed("Question", map[string]any{
			"name":           faq.Question,
			"acceptedAnswer": typed("Answer", map[string]any{"text": faq.Answer}),
		}))
	}
	s := newSchema("FAQPage")
	s["mainEntity"] = entities
	return s
}

// BreadcrumbSchema 位置从 1 开始，相对路径补全为绝对地址。
func (g *Generator) BreadcrumbSchema(crumbs []Breadcrumb) Schema {
	items := make([]map[string]any, 0, len(crumbs))
	for i, crumb := range crumbs {
		items = append(items, typed("ListItem", map[string]any{
			"position": i + 1,
			"name":     crumb.Label,
			"item":     g.AbsURL(crumb.URL),
		}))
	}
	s := newSchema("BreadcrumbList")
	s["itemListElement"] = items
	return s
}

// ArticleSchema 文章页。
func (g *Generator) ArticleSchema(a Article) Schema {
	s := newSchema("Article")
	s["headline"] = a.Title
	s["description"] = a.Description
	s["url"] = g.AbsURL(a.path())
	s["datePublished"] = a.PublishedAt.UTC().Format(time.RFC3339)
	s["author"] = typed("Person", map[string]any{"name": a.Author})
	s["publisher"] = typed("Organization", map[string]any{
		"name": g.site.Name,
		"logo": typed("ImageObject", map[string]any{"url": g.AbsURL("/assets/logo.png")}),
	})
	if a.Image != "" {
		s["image"] = a.Image
	}
	if !a.ModifiedAt.IsZero() {
		s["dateModified"] = a.ModifiedAt.UTC().Format(time.RFC3339)
	}
	if a.WordCount > 0 {
		s["wordCount"] = a.WordCount
	}
	return s
}

// CollectionPageSchema 分类与主题聚合页。
func (g *Generator) CollectionPageSchema(name, description, url string, itemCount int) Schema {
	s := newSchema("CollectionPage")
	s["name"] = name
	s["description"] = description
	s["url"] = g.AbsURL(url)
	s["numberOfItems"] = itemCount
	s["provider"] = typed("Organization", map[string]any{"name": g.site.Name})
	return s
}

// ItemListSchema 书籍列表。
func (g *Generator) ItemListSchema(name string, items []ListItem) Schema {
	elements := make([]map[string]any, 0, len(items))
	for _, item := range items {
		elements = append(elements, typed("ListItem", map[string]any{
			"position": item.Position,
			"name":     item.Name,
			"url":      g.AbsURL(item.URL),
		}))
	}
	s := newSchema("ItemList")
	s["name"] = name
	s["numberOfItems"] = len(items)
	s["itemListElement"] = elements
	return s
}
