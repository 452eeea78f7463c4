package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeBook() Book {
	return Book{
		Slug:         "atomic-habits",
		Title:        "Atomic Habits",
		Author:       AuthorRef{Slug: "james-clear", Name: "James Clear"},
		Category:     CategoryRef{Slug: "self-improvement", Name: "Self Improvement"},
		Description:  words(25),
		Summary:      words(320),
		KeyTakeaways: []string{"a", "b", "c"},
		ISBN:         "978-0735211292",
		FAQ:          []FAQ{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}},
	}
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Message)
	}
	return out
}

func TestValidateBookComplete(t *testing.T) {
	result := ValidateBook(completeBook())
	assert.True(t, result.Valid)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.Warnings)
}

func TestValidateBookMissingTitle(t *testing.T) {
	book := completeBook()
	book.Title = ""
	result := ValidateBook(book)
	assert.False(t, result.Valid)
	assert.Equal(t, 80, result.Score)
	assert.Contains(t, messages(result.Issues), "Missing required field: title")
}

func TestValidateBookMissingAuthorCountsOnce(t *testing.T) {
	book := completeBook()
	book.Author = AuthorRef{}
	result := ValidateBook(book)
	assert.Equal(t, 80, result.Score)
	assert.Equal(t, []string{"Missing required field: author"}, messages(result.Issues))
}

func TestValidateBookPartialCategoryRef(t *testing.T) {
	book := completeBook()
	book.Category.Name = ""
	result := ValidateBook(book)
	assert.Equal(t, 90, result.Score)
	assert.Equal(t, []string{"Category must have both slug and name"}, messages(result.Issues))
}

func TestValidateBookThinContent(t *testing.T) {
	book := completeBook()
	book.Summary = words(10)
	book.KeyTakeaways = []string{"only"}
	book.FAQ = nil
	book.Description = words(5)
	result := ValidateBook(book)

	assert.False(t, result.Valid)
	assert.Equal(t, 100-15-10-5-5, result.Score)
	assert.Contains(t, messages(result.Issues), "Summary too short: 10 words (minimum: 300)")
	assert.Contains(t, messages(result.Issues), "Not enough key takeaways: 1 (minimum: 3)")
	assert.Contains(t, messages(result.Warnings), "Few FAQs: 0 (recommended: 2+)")
}

func TestValidateBookBadISBNIsWarning(t *testing.T) {
	book := completeBook()
	book.ISBN = "12345"
	result := ValidateBook(book)
	assert.True(t, result.Valid)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, []string{"ISBN should have 10 or 13 digits"}, messages(result.Warnings))
}

func TestValidateBookScoreFloorsAtZero(t *testing.T) {
	result := ValidateBook(Book{})
	assert.False(t, result.Valid)
	assert.Equal(t, 0, result.Score)
}

func TestValidateBatchAverages(t *testing.T) {
	thin := completeBook()
	thin.FAQ = nil
	report := ValidateBatch([]Book{completeBook(), thin})
	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.TotalBooks)
	assert.Equal(t, 2, report.ValidBooks)
	assert.Equal(t, 0, report.InvalidBooks)
	assert.Equal(t, 98, report.AverageScore)

	assert.Equal(t, 0, ValidateBatch(nil).AverageScore)
}

func TestCheckKeywordCannibalization(t *testing.T) {
	a := fixtureBook("business", "habits-one", "Power of Habits", "X")
	b := fixtureBook("business", "habits-two", "Tiny Habits", "Y")
	b.Topics = []string{"productivity"}
	c := fixtureBook("business", "other", "Deep Work", "Z")
	c.Topics = []string{"productivity"}

	overlaps := CheckKeywordCannibalization([]Book{a, b, c})
	require.Len(t, overlaps, 2)
	assert.Equal(t, "habits", overlaps[0].Keyword)
	assert.Equal(t, []string{"habits-one", "habits-two"}, overlaps[0].Pages)
	assert.Equal(t, "productivity", overlaps[1].Keyword)
}

func TestCheckDuplicateContent(t *testing.T) {
	a := fixtureBook("business", "a", "The Lean Startup Method", "X")
	a.Description = "one two three four"
	b := fixtureBook("business", "b", "The Lean Startup Method", "Y")
	b.Description = "five six seven eight"

	pairs := CheckDuplicateContent([]Book{a, b})
	require.Len(t, pairs, 1)
	assert.Equal(t, "title", pairs[0].Type)
	assert.Equal(t, [2]string{"a", "b"}, pairs[0].Books)
	assert.InDelta(t, 1.0, pairs[0].Similarity, 0.0001)
}

func TestCheckReferences(t *testing.T) {
	fsys := newFixtureFs(t)
	writeFixture(t, fsys, "books/_categories.json", []Category{{Slug: "business", Name: "Business"}})
	writeFixture(t, fsys, "authors/peter-thiel.json", Author{Slug: "peter-thiel", Name: "Peter Thiel"})
	writeBook(t, fsys, fixtureBook("business", "zero-to-one", "Zero to One", "Peter Thiel"))
	writeBook(t, fsys, fixtureBook("psychology", "thinking", "Thinking", "Daniel Kahneman"))

	issues := CheckReferences(newFixtureRepo(fsys))
	kinds := map[string]string{}
	for _, issue := range issues {
		assert.Equal(t, "thinking", issue.Book.Slug)
		kinds[issue.Kind] = issue.Target
	}
	assert.Equal(t, map[string]string{"category": "psychology", "author": "daniel-kahneman"}, kinds)
}
