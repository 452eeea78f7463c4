package seo

import (
	"fmt"
	"strings"
)

// DescriptionLimit 是 meta description 的最大长度。
const DescriptionLimit = 160

// Truncate 超出 limit 时截断到 limit-3 并追加省略号。
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

// PageType 决定标题模板。
type PageType string

const (
	PageHome          PageType = "home"
	PageBookSummary   PageType = "book-summary"
	PageCategoryHub   PageType = "category-hub"
	PageAuthorProfile PageType = "author-profile"
	PageTopicHub      PageType = "topic-hub"
	PageReadingList   PageType = "reading-list"
	PageBlogArticle   PageType = "blog-article"
	PageComparison    PageType = "comparison"
	PageGuide         PageType = "guide"
	PageLegal         PageType = "legal"
)

// UniqueTitle 为不同页面类型套用不同标题模式，避免关键词互相竞争。
func UniqueTitle(base string, pageType PageType, context string) string {
	switch pageType {
	case PageBookSummary:
		if context != "" {
			return fmt.Sprintf("%s Summary & Key Takeaways | %s", base, context)
		}
		return base + " Summary & Key Takeaways"
	case PageCategoryHub:
		return fmt.Sprintf("Best %s Books - Summaries & Reviews", base)
	case PageAuthorProfile:
		return base + " - Books & Biography"
	case PageTopicHub:
		return base + " Books - Best Reads & Summaries"
	case PageReadingList:
		return base + " Reading List - Curated Book Collection"
	case PageGuide:
		return base + " - Complete Guide"
	default:
		return base
	}
}
