package content

import (
	"encoding/json"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const fixtureRoot = "/content"

func newFixtureFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(path.Join(fixtureRoot, booksDir), 0o755))
	return fsys
}

func writeFixture(t *testing.T, fsys afero.Fs, rel string, value any) {
	t.Helper()
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err)
	}
	full := path.Join(fixtureRoot, rel)
	require.NoError(t, fsys.MkdirAll(path.Dir(full), 0o755))
	require.NoError(t, afero.WriteFile(fsys, full, raw, 0o644))
}

func fixtureBook(category, slug, title, author string) Book {
	return Book{
		Slug:         slug,
		Title:        title,
		Author:       AuthorRef{Slug: strings.ToLower(strings.ReplaceAll(author, " ", "-")), Name: author},
		Category:     CategoryRef{Slug: category, Name: category},
		Description:  "A short description",
		Summary:      "Summary",
		KeyTakeaways: []string{"one"},
		FAQ:          []FAQ{},
		RelatedBooks: []string{},
		Topics:       []string{},
	}
}

func writeBook(t *testing.T, fsys afero.Fs, book Book) {
	t.Helper()
	writeFixture(t, fsys, bookPath(book.Category.Slug, book.Slug), book)
}

func newFixtureRepo(fsys afero.Fs) *Repository {
	return NewRepository(fsys, fixtureRoot, nil)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}
