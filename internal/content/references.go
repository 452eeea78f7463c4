package content

// ReferenceIssue 描述一条无法解析的书籍引用。
type ReferenceIssue struct {
	Book    BookKey `json:"book"`
	Kind    string  `json:"kind"`
	Target  string  `json:"target"`
	Message string  `json:"message"`
}

// CheckReferences 校验每本书的分类与作者引用都能解析到现有记录。
func CheckReferences(repo *Repository) []ReferenceIssue {
	categories := make(map[string]struct{})
	for _, category := range repo.ListCategories() {
		categories[category.Slug] = struct{}{}
	}
	authors := make(map[string]struct{})
	for _, slug := range repo.ListAuthorKeys() {
		authors[slug] = struct{}{}
	}

	issues := make([]ReferenceIssue, 0)
	for _, key := range repo.ListBookKeys() {
		book, ok := repo.GetBook(key.Category, key.Slug)
		if !ok {
			issues = append(issues, ReferenceIssue{Book: key, Kind: "unreadable", Target: bookPath(key.Category, key.Slug), Message: "book file cannot be read"})
			continue
		}
		if _, ok := categories[book.Category.Slug]; !ok {
			issues = append(issues, ReferenceIssue{Book: key, Kind: "category", Target: book.Category.Slug, Message: "category not listed in _categories.json"})
		}
		if book.Category.Slug != key.Category {
			issues = append(issues, ReferenceIssue{Book: key, Kind: "category_directory", Target: book.Category.Slug, Message: "category slug does not match directory"})
		}
		if _, ok := authors[book.Author.Slug]; !ok {
			issues = append(issues, ReferenceIssue{Book: key, Kind: "author", Target: book.Author.Slug, Message: "author file not found"})
		}
		if book.Slug != key.Slug {
			issues = append(issues, ReferenceIssue{Book: key, Kind: "slug", Target: book.Slug, Message: "slug does not match file name"})
		}
	}
	return issues
}
