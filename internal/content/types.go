package content

// AuthorRef 是书籍对作者的引用。
type AuthorRef struct {
	Slug string `json:"slug" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CategoryRef 是书籍对分类的引用。
type CategoryRef struct {
	Slug           string `json:"slug" validate:"required"`
	Name           string `json:"name" validate:"required"`
	ParentCategory string `json:"parentCategory,omitempty"`
}

// Rating 聚合评分。
type Rating struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// FAQ 是一组问答。
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Book 对应 books/<category>/<slug>.json。
type Book struct {
	Slug          string      `json:"slug"`
	Title         string      `json:"title" validate:"required"`
	Author        AuthorRef   `json:"author"`
	Category      CategoryRef `json:"category"`
	Description   string      `json:"description" validate:"required"`
	Summary       string      `json:"summary" validate:"required"`
	KeyTakeaways  []string    `json:"keyTakeaways" validate:"required"`
	CoverImage    string      `json:"coverImage,omitempty"`
	ISBN          string      `json:"isbn,omitempty" validate:"omitempty,isbn"`
	PublishedYear int         `json:"publishedYear,omitempty"`
	PageCount     int         `json:"pageCount,omitempty"`
	Rating        *Rating     `json:"rating,omitempty"`
	FAQ           []FAQ       `json:"faq"`
	RelatedBooks  []string    `json:"relatedBooks"`
	Topics        []string    `json:"topics"`
}

// Key 返回书籍的 (分类, slug) 定位。
func (b Book) Key() BookKey {
	return BookKey{Category: b.Category.Slug, Slug: b.Slug}
}

// BookKey 唯一定位一本书。
type BookKey struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
}

// Category 对应 _categories.json 中的一项。
type Category struct {
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ParentCategory string   `json:"parentCategory,omitempty"`
	Subcategories  []string `json:"subcategories,omitempty"`
	BookCount      int      `json:"bookCount"`
}

// SocialLinks 作者的社交链接。
type SocialLinks struct {
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Author 对应 authors/<slug>.json。
type Author struct {
	Slug        string       `json:"slug"`
	Name        string       `json:"name"`
	Bio         string       `json:"bio"`
	Image       string       `json:"image,omitempty"`
	Books       []string     `json:"books"`
	SocialLinks *SocialLinks `json:"socialLinks,omitempty"`
}

// Topic 对应 topics/<slug>.json。
type Topic struct {
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	RelatedTopics []string `json:"relatedTopics"`
	Books         []string `json:"books"`
}

// ChangelogEntry 对应 changelog.yaml 中的一个版本。
type ChangelogEntry struct {
	Version string   `yaml:"version" json:"version"`
	Date    string   `yaml:"date" json:"date"`
	Title   string   `yaml:"title" json:"title"`
	Changes []string `yaml:"changes" json:"changes"`
}
