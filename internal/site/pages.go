package site

import (
	"fmt"
	"html/template"
	"time"

	"github.com/leaftok/leaftok-site/internal/content"
	"github.com/leaftok/leaftok-site/internal/seo"
)

// Page 是一个待渲染的输出文件。
type Page struct {
	// Path 是站点路径，例如 /books/business/。
	Path     string
	Template string
	Data     PageData
}

// OutputFile 将目录路径映射为 <path>/index.html。
func (p Page) OutputFile() string {
	return OutputFile(p.Path)
}

// OutputFile 返回站点路径对应的相对文件名。
func OutputFile(sitePath string) string {
	switch {
	case sitePath == "" || sitePath == "/":
		return "index.html"
	case sitePath[len(sitePath)-1] == '/':
		return sitePath[1:] + "index.html"
	default:
		return sitePath[1:]
	}
}

type homeBody struct {
	Categories []content.Category
}

type booksBody struct {
	Categories []content.Category
}

type categoryBody struct {
	Category content.Category
	Books    []content.Book
}

type bookBody struct {
	Book    content.Book
	Summary template.HTML
	Topics  []string
	Related []content.Book
}

type authorBody struct {
	Author content.Author
	Books  []content.Book
}

type topicBody struct {
	Topic content.Topic
	Books []content.Book
}

type changelogBody struct {
	Entries []content.ChangelogEntry
}

// RelatedLimit 是书籍页展示的相关书籍数量。
const RelatedLimit = 3

// planner 从内容仓库计算出全部页面。
type planner struct {
	repo     *content.Repository
	seo      *seo.Generator
	markdown *Markdown
	now      time.Time
}

func (p *planner) page(path, tpl string, meta seo.Metadata, crumbs []seo.Breadcrumb, body any, schemas ...seo.Schema) (Page, error) {
	if len(crumbs) > 1 {
		schemas = append(schemas, p.seo.BreadcrumbSchema(crumbs))
	}
	scripts, err := schemaScripts(schemas...)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", path, err)
	}
	site := p.seo.Site()
	lang := "en"
	if len(site.Locales) > 0 {
		lang = site.Locales[0]
	}
	return Page{
		Path:     path,
		Template: tpl,
		Data: PageData{
			Lang:        lang,
			Title:       p.seo.PageTitle(meta),
			Meta:        meta,
			Schemas:     scripts,
			Breadcrumbs: crumbs,
			Site:        site,
			Year:        p.now.Year(),
			Body:        body,
		},
	}, nil
}

// plan 返回页面列表；书籍页的 Markdown 在这里转换。
func (p *planner) plan() ([]Page, error) {
	categories := p.repo.ListCategories()
	keys := p.repo.ListBookKeys()
	books := make([]content.Book, 0, len(keys))
	bookKeys := make([]content.BookKey, 0, len(keys))
	bySlug := make(map[string]content.Book, len(keys))
	for _, key := range keys {
		book, ok := p.repo.GetBook(key.Category, key.Slug)
		if !ok {
			continue
		}
		books = append(books, *book)
		bookKeys = append(bookKeys, key)
		bySlug[book.Slug] = *book
	}

	pages := make([]Page, 0, len(books)+len(categories)+8)
	add := func(page Page, err error) error {
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	}

	if err := add(p.page("/", tplHome, p.seo.HomeMetadata(), nil, homeBody{Categories: categories},
		p.seo.OrganizationSchema(), p.seo.SoftwareApplicationSchema(), p.seo.WebSiteSchema())); err != nil {
		return nil, err
	}

	if err := add(p.page("/books/", tplBooks, p.seo.BooksIndexMetadata(len(categories)),
		seo.PageBreadcrumbs("Books", "/books/"), booksBody{Categories: categories},
		p.seo.CollectionPageSchema("Book Summaries Collection",
			"Browse our comprehensive collection of book summaries across multiple categories.",
			"/books/", len(categories)))); err != nil {
		return nil, err
	}

	for _, category := range categories {
		inCategory := p.repo.ListBooksInCategory(category.Slug)
		items := make([]seo.ListItem, 0, len(inCategory))
		for i, book := range inCategory {
			items = append(items, seo.ListItem{Name: book.Title, URL: seo.BookPath(category.Slug, book.Slug), Position: i + 1})
		}
		meta := p.seo.CategoryMetadata(category)
		if err := add(p.page(seo.CategoryPath(category.Slug), tplCategory, meta,
			seo.CategoryBreadcrumbs(category.Name, category.Slug),
			categoryBody{Category: category, Books: inCategory},
			p.seo.CollectionPageSchema(category.Name+" Books", meta.Description, seo.CategoryPath(category.Slug), len(inCategory)),
			p.seo.ItemListSchema(category.Name+" Book Summaries", items))); err != nil {
			return nil, err
		}
	}

	for i, book := range books {
		page, err := p.bookPage(bookKeys[i], book)
		if err := add(page, err); err != nil {
			return nil, err
		}
	}

	for _, slug := range p.repo.ListAuthorKeys() {
		author, ok := p.repo.GetAuthor(slug)
		if !ok {
			continue
		}
		if err := add(p.page(seo.AuthorPath(author.Slug), tplAuthor, p.seo.AuthorMetadata(*author),
			seo.AuthorBreadcrumbs(author.Name, author.Slug),
			authorBody{Author: *author, Books: pick(bySlug, author.Books)},
			p.seo.PersonSchema(*author))); err != nil {
			return nil, err
		}
	}

	for _, slug := range p.repo.ListTopicKeys() {
		topic, ok := p.repo.GetTopic(slug)
		if !ok {
			continue
		}
		topicBooks := pick(bySlug, topic.Books)
		meta := p.seo.TopicMetadata(*topic)
		if err := add(p.page(seo.TopicPath(topic.Slug), tplTopic, meta,
			seo.TopicBreadcrumbs(topic.Name, topic.Slug),
			topicBody{Topic: *topic, Books: topicBooks},
			p.seo.CollectionPageSchema(topic.Name+" Books", meta.Description, seo.TopicPath(topic.Slug), len(topicBooks)))); err != nil {
			return nil, err
		}
	}

	site := p.seo.Site()
	changelog := seo.Article{
		Title:       site.Name + " Changelog",
		Description: fmt.Sprintf("Release notes for the %s app: new features, improvements and fixes in every version of the AI-powered reading app.", site.Name),
		URL:         "/changelog/",
		PublishedAt: p.now,
		Author:      site.AuthorName,
	}
	if err := add(p.page("/changelog/", tplChangelog, p.seo.ArticleMetadata(changelog),
		seo.PageBreadcrumbs("Changelog", "/changelog/"),
		changelogBody{Entries: p.repo.LoadChangelog()},
		p.seo.ArticleSchema(changelog))); err != nil {
		return nil, err
	}

	if err := add(p.page("/privacy/", tplPrivacy,
		p.seo.LegalMetadata("Privacy Policy",
			fmt.Sprintf("How %s handles your data: anonymous website metrics, the books you import and the content used to generate your reading cards.", site.Name),
			"/privacy/"),
		seo.PageBreadcrumbs("Privacy Policy", "/privacy/"), nil,
		p.seo.OrganizationSchema())); err != nil {
		return nil, err
	}

	if err := add(p.page("/404.html", tplNotFound, p.seo.NotFoundMetadata(), nil, nil,
		p.seo.OrganizationSchema())); err != nil {
		return nil, err
	}
	return pages, nil
}

// bookPage 的路径取自目录键，分类名缺失时退回书籍自带的引用。
func (p *planner) bookPage(key content.BookKey, book content.Book) (Page, error) {
	category, ok := p.repo.GetCategory(key.Category)
	if !ok {
		category = &content.Category{Slug: key.Category, Name: book.Category.Name}
	}
	summary, err := p.markdown.Render(book.Summary)
	if err != nil {
		return Page{}, fmt.Errorf("render summary %s: %w", book.Slug, err)
	}
	reviewBody, err := p.markdown.PlainText(book.Summary)
	if err != nil {
		return Page{}, fmt.Errorf("render review %s: %w", book.Slug, err)
	}
	schemas := []seo.Schema{p.seo.BookSchema(book, category.Name), p.seo.ReviewSchema(book, reviewBody)}
	if len(book.FAQ) > 0 {
		schemas = append(schemas, p.seo.FAQPageSchema(book.FAQ))
	}
	return p.page(seo.BookPath(category.Slug, book.Slug), tplBook, p.seo.BookMetadata(book, *category),
		seo.BookBreadcrumbs(category.Slug, category.Name, book.Title, book.Slug),
		bookBody{
			Book:    book,
			Summary: summary,
			Topics:  book.Topics,
			Related: p.repo.RelatedBooks(book.Slug, RelatedLimit),
		},
		schemas...)
}

func pick(bySlug map[string]content.Book, slugs []string) []content.Book {
	out := make([]content.Book, 0, len(slugs))
	for _, slug := range slugs {
		if book, ok := bySlug[slug]; ok {
			out = append(out, book)
		}
	}
	return out
}
