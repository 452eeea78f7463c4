package seo

// Breadcrumb 是面包屑中的一级。
type Breadcrumb struct {
	Label string
	URL   string
}

var home = Breadcrumb{Label: "Home", URL: "/"}

func BookBreadcrumbs(categorySlug, categoryName, bookTitle, bookSlug string) []Breadcrumb {
	return []Breadcrumb{
		home,
		{Label: "Books", URL: "/books/"},
		{Label: categoryName, URL: CategoryPath(categorySlug)},
		{Label: bookTitle, URL: BookPath(categorySlug, bookSlug)},
	}
}

func CategoryBreadcrumbs(categoryName, categorySlug string) []Breadcrumb {
	return []Breadcrumb{
		home,
		{Label: "Books", URL: "/books/"},
		{Label: categoryName, URL: CategoryPath(categorySlug)},
	}
}

func AuthorBreadcrumbs(authorName, authorSlug string) []Breadcrumb {
	return []Breadcrumb{
		home,
		{Label: "Authors", URL: "/authors/"},
		{Label: authorName, URL: AuthorPath(authorSlug)},
	}
}

func TopicBreadcrumbs(topicName, topicSlug string) []Breadcrumb {
	return []Breadcrumb{
		home,
		{Label: "Topics", URL: "/topics/"},
		{Label: topicName, URL: TopicPath(topicSlug)},
	}
}

// PageBreadcrumbs 用于只有一级的页面，例如 /changelog/。
func PageBreadcrumbs(label, url string) []Breadcrumb {
	return []Breadcrumb{home, {Label: label, URL: url}}
}
