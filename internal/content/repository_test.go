package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBooksInCategoryReturnsAllInListingOrder(t *testing.T) {
	fsys := newFixtureFs(t)
	writeBook(t, fsys, fixtureBook("business", "zero-to-one", "Zero to One", "Peter Thiel"))
	writeBook(t, fsys, fixtureBook("business", "good-to-great", "Good to Great", "Jim Collins"))
	writeBook(t, fsys, fixtureBook("business", "the-lean-startup", "The Lean Startup", "Eric Ries"))
	writeBook(t, fsys, fixtureBook("self-improvement", "atomic-habits", "Atomic Habits", "James Clear"))

	books := newFixtureRepo(fsys).ListBooksInCategory("business")
	require.Len(t, books, 3)
	assert.Equal(t, "good-to-great", books[0].Slug)
	assert.Equal(t, "the-lean-startup", books[1].Slug)
	assert.Equal(t, "zero-to-one", books[2].Slug)
}

func TestListBooksInCategoryFailsSoftOnMalformedFile(t *testing.T) {
	fsys := newFixtureFs(t)
	writeBook(t, fsys, fixtureBook("business", "good-to-great", "Good to Great", "Jim Collins"))
	writeFixture(t, fsys, "books/business/broken.json", "{not json")

	assert.Empty(t, newFixtureRepo(fsys).ListBooksInCategory("business"))
	assert.Empty(t, newFixtureRepo(fsys).ListBooksInCategory("unknown"))
}

func TestListBookKeysSkipsCategoriesFile(t *testing.T) {
	fsys := newFixtureFs(t)
	writeFixture(t, fsys, "books/_categories.json", []Category{{Slug: "business", Name: "Business"}})
	writeBook(t, fsys, fixtureBook("business", "good-to-great", "Good to Great", "Jim Collins"))
	writeFixture(t, fsys, "books/business/notes.txt", "ignored")

	keys := newFixtureRepo(fsys).ListBookKeys()
	assert.Equal(t, []BookKey{{Category: "business", Slug: "good-to-great"}}, keys)
}

func TestListBookKeysMissingBooksDir(t *testing.T) {
	repo := NewRepository(nil, t.TempDir(), nil)
	keys := repo.ListBookKeys()
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestListCategoriesMissingOrMalformed(t *testing.T) {
	fsys := newFixtureFs(t)
	repo := newFixtureRepo(fsys)
	assert.Empty(t, repo.ListCategories())

	writeFixture(t, fsys, "books/_categories.json", "[{")
	assert.Empty(t, repo.ListCategories())
	_, ok := repo.GetCategory("business")
	assert.False(t, ok)
}

func TestGetCategory(t *testing.T) {
	fsys := newFixtureFs(t)
	writeFixture(t, fsys, "books/_categories.json", []Category{
		{Slug: "business", Name: "Business", BookCount: 3},
		{Slug: "psychology", Name: "Psychology", BookCount: 1},
	})
	category, ok := newFixtureRepo(fsys).GetCategory("psychology")
	require.True(t, ok)
	assert.Equal(t, "Psychology", category.Name)
}

func TestGetBookMissingAndMalformed(t *testing.T) {
	fsys := newFixtureFs(t)
	writeFixture(t, fsys, "books/business/broken.json", "{")
	repo := newFixtureRepo(fsys)

	_, ok := repo.GetBook("business", "nope")
	assert.False(t, ok)
	_, ok = repo.GetBook("business", "broken")
	assert.False(t, ok)
}

func TestGetBookDecodesFields(t *testing.T) {
	fsys := newFixtureFs(t)
	book := fixtureBook("business", "zero-to-one", "Zero to One", "Peter Thiel")
	book.Rating = &Rating{Value: 4.5, Count: 120}
	book.PublishedYear = 2014
	writeBook(t, fsys, book)

	got, ok := newFixtureRepo(fsys).GetBook("business", "zero-to-one")
	require.True(t, ok)
	assert.Equal(t, "Peter Thiel", got.Author.Name)
	assert.Equal(t, 2014, got.PublishedYear)
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 4.5, got.Rating.Value, 0.0001)
	assert.Equal(t, BookKey{Category: "business", Slug: "zero-to-one"}, got.Key())
}

func TestRelatedBooksExcludesSelfAndRespectsLimit(t *testing.T) {
	fsys := newFixtureFs(t)
	writeBook(t, fsys, fixtureBook("business", "a", "A", "X"))
	writeBook(t, fsys, fixtureBook("business", "b", "B", "X"))
	writeBook(t, fsys, fixtureBook("business", "c", "C", "X"))
	writeBook(t, fsys, fixtureBook("psychology", "d", "D", "Y"))
	repo := newFixtureRepo(fsys)

	related := repo.RelatedBooks("b", 2)
	require.Len(t, related, 2)
	assert.Equal(t, "a", related[0].Slug)
	assert.Equal(t, "c", related[1].Slug)

	assert.Len(t, repo.RelatedBooks("b", 10), 3)
	assert.Empty(t, repo.RelatedBooks("b", 0))
}

func TestSearchBooksMatchesTitleAndAuthor(t *testing.T) {
	fsys := newFixtureFs(t)
	writeBook(t, fsys, fixtureBook("business", "zero-to-one", "Zero to One", "Peter Thiel"))
	writeBook(t, fsys, fixtureBook("self-improvement", "atomic-habits", "Atomic Habits", "James Clear"))
	repo := newFixtureRepo(fsys)

	byTitle := repo.SearchBooks("HABITS")
	require.Len(t, byTitle, 1)
	assert.Equal(t, "atomic-habits", byTitle[0].Slug)

	byAuthor := repo.SearchBooks("thiel")
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "zero-to-one", byAuthor[0].Slug)

	assert.Empty(t, repo.SearchBooks("dostoevsky"))
}

func TestAuthorsAndTopics(t *testing.T) {
	fsys := newFixtureFs(t)
	writeFixture(t, fsys, "authors/james-clear.json", Author{Slug: "james-clear", Name: "James Clear", Books: []string{"atomic-habits"}})
	writeFixture(t, fsys, "topics/habits.json", Topic{Slug: "habits", Name: "Habits"})
	repo := newFixtureRepo(fsys)

	assert.Equal(t, []string{"james-clear"}, repo.ListAuthorKeys())
	author, ok := repo.GetAuthor("james-clear")
	require.True(t, ok)
	assert.Equal(t, []string{"atomic-habits"}, author.Books)

	assert.Equal(t, []string{"habits"}, repo.ListTopicKeys())
	_, ok = repo.GetTopic("missing")
	assert.False(t, ok)
}

func TestAuditDistinguishesMissingFromMalformed(t *testing.T) {
	fsys := newFixtureFs(t)
	writeBook(t, fsys, fixtureBook("business", "ok", "OK", "X"))
	writeFixture(t, fsys, "books/business/broken.json", "{")
	writeFixture(t, fsys, "authors/x.json", Author{Slug: "x", Name: "X"})

	report := newFixtureRepo(fsys).Audit()
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Books)
	assert.Equal(t, 1, report.Authors)

	byPath := map[string]AuditProblem{}
	for _, problem := range report.Problems {
		byPath[problem.Path] = problem
	}
	require.Contains(t, byPath, "books/business/broken.json")
	assert.False(t, byPath["books/business/broken.json"].Missing)
	require.Contains(t, byPath, "books/_categories.json")
	assert.True(t, byPath["books/_categories.json"].Missing)
	require.Contains(t, byPath, "topics")
	assert.True(t, byPath["topics"].Missing)
}

func TestLoadChangelog(t *testing.T) {
	fsys := newFixtureFs(t)
	repo := newFixtureRepo(fsys)
	assert.Empty(t, repo.LoadChangelog())

	writeFixture(t, fsys, "changelog.yaml", `
entries:
  - version: "1.2.0"
    date: "2025-01-10"
    title: Offline reading
    changes:
      - Cards are cached for offline use
      - Faster startup
`)
	entries := repo.LoadChangelog()
	require.Len(t, entries, 1)
	assert.Equal(t, "1.2.0", entries[0].Version)
	assert.Len(t, entries[0].Changes, 2)
}
