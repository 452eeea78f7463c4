package content

import "strings"

const (
	minKeywordLength         = 4
	titleSimilarityLimit     = 0.8
	descriptionSimilarityMax = 0.7
)

// KeywordOverlap 表示多个页面竞争同一关键词。
type KeywordOverlap struct {
	Keyword string   `json:"keyword"`
	Pages   []string `json:"pages"`
}

// CheckKeywordCannibalization 从书名单词与主题中提取关键词（至少 4 个字符），
// 返回被多本书共用的关键词，顺序与首次出现顺序一致。
func CheckKeywordCannibalization(books []Book) []KeywordOverlap {
	pages := make(map[string][]string)
	order := make([]string, 0)
	for _, book := range books {
		keywords := strings.Fields(strings.ToLower(book.Title))
		for _, topic := range book.Topics {
			keywords = append(keywords, strings.ToLower(topic))
		}
		for _, keyword := range keywords {
			if len(keyword) < minKeywordLength {
				continue
			}
			if _, seen := pages[keyword]; !seen {
				order = append(order, keyword)
			}
			pages[keyword] = append(pages[keyword], book.Slug)
		}
	}

	overlaps := make([]KeywordOverlap, 0)
	for _, keyword := range order {
		if len(pages[keyword]) > 1 {
			overlaps = append(overlaps, KeywordOverlap{Keyword: keyword, Pages: pages[keyword]})
		}
	}
	return overlaps
}

// DuplicatePair 表示两本书的标题或描述过于相似。
type DuplicatePair struct {
	Books      [2]string `json:"books"`
	Similarity float64   `json:"similarity"`
	Type       string    `json:"type"`
}

// CheckDuplicateContent 两两比较书名（> 0.8）与描述（> 0.7）的 Jaccard 相似度。
func CheckDuplicateContent(books []Book) []DuplicatePair {
	pairs := make([]DuplicatePair, 0)
	for i := 0; i < len(books); i++ {
		for j := i + 1; j < len(books); j++ {
			a, b := books[i], books[j]
			if sim := jaccard(a.Title, b.Title); sim > titleSimilarityLimit {
				pairs = append(pairs, DuplicatePair{Books: [2]string{a.Slug, b.Slug}, Similarity: sim, Type: "title"})
			}
			if sim := jaccard(a.Description, b.Description); sim > descriptionSimilarityMax {
				pairs = append(pairs, DuplicatePair{Books: [2]string{a.Slug, b.Slug}, Similarity: sim, Type: "description"})
			}
		}
	}
	return pairs
}

func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		set[word] = struct{}{}
	}
	return set
}
