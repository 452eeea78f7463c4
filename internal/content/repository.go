package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/leaftok/leaftok-site/internal/logging"
)

const (
	booksDir       = "books"
	authorsDir     = "authors"
	topicsDir      = "topics"
	categoriesFile = "_categories.json"
	changelogFile  = "changelog.yaml"
	jsonExt        = ".json"
)

// Repository 提供内容目录的只读查询，可被并发调用。
type Repository struct {
	fs     afero.Fs
	logger *logrus.Entry
}

// NewRepository 以 root 为内容根目录；fsys 为 nil 时使用操作系统文件系统。
func NewRepository(fsys afero.Fs, root string, logger *logrus.Logger) *Repository {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Repository{
		fs:     afero.NewReadOnlyFs(afero.NewBasePathFs(fsys, root)),
		logger: logging.Component(logger, "content"),
	}
}

// ListBookKeys 扫描 books/ 下的分类目录，每个 *.json 对应一个键；任何错误返回空。
func (r *Repository) ListBookKeys() []BookKey {
	keys, err := r.bookKeys()
	if err != nil {
		r.softFail("list_book_keys", booksDir, err)
		return []BookKey{}
	}
	return keys
}

func (r *Repository) bookKeys() ([]BookKey, error) {
	categories, err := afero.ReadDir(r.fs, booksDir)
	if err != nil {
		return nil, err
	}
	keys := make([]BookKey, 0)
	for _, dir := range categories {
		if !dir.IsDir() {
			continue
		}
		slugs, err := r.jsonSlugs(path.Join(booksDir, dir.Name()))
		if err != nil {
			return nil, err
		}
		for _, slug := range slugs {
			keys = append(keys, BookKey{Category: dir.Name(), Slug: slug})
		}
	}
	return keys, nil
}

// GetBook 读取单本书；缺失与解析失败同样视为不存在。
func (r *Repository) GetBook(category, slug string) (*Book, bool) {
	var book Book
	p := bookPath(category, slug)
	if err := r.readJSON(p, &book); err != nil {
		r.softFail("get_book", p, err)
		return nil, false
	}
	return &book, true
}

// ListBooksInCategory 按目录顺序返回分类下全部书籍；任一文件失败则整体返回空。
func (r *Repository) ListBooksInCategory(category string) []Book {
	dir := path.Join(booksDir, category)
	slugs, err := r.jsonSlugs(dir)
	if err != nil {
		r.softFail("list_books_in_category", dir, err)
		return []Book{}
	}
	books := make([]Book, 0, len(slugs))
	for _, slug := range slugs {
		var book Book
		p := bookPath(category, slug)
		if err := r.readJSON(p, &book); err != nil {
			r.softFail("list_books_in_category", p, err)
			return []Book{}
		}
		books = append(books, book)
	}
	return books
}

// ListCategories 返回 _categories.json 内容；缺失或格式错误返回空。
func (r *Repository) ListCategories() []Category {
	var categories []Category
	p := path.Join(booksDir, categoriesFile)
	if err := r.readJSON(p, &categories); err != nil {
		r.softFail("list_categories", p, err)
		return []Category{}
	}
	if categories == nil {
		return []Category{}
	}
	return categories
}

// GetCategory 在 ListCategories 结果中线性查找。
func (r *Repository) GetCategory(slug string) (*Category, bool) {
	for _, category := range r.ListCategories() {
		if category.Slug == slug {
			found := category
			return &found, true
		}
	}
	return nil, false
}

// ListAuthorKeys 返回 authors/ 下的 slug 列表。
func (r *Repository) ListAuthorKeys() []string {
	return r.listKeys("list_author_keys", authorsDir)
}

// GetAuthor 读取作者记录。
func (r *Repository) GetAuthor(slug string) (*Author, bool) {
	var author Author
	p := path.Join(authorsDir, slug+jsonExt)
	if err := r.readJSON(p, &author); err != nil {
		r.softFail("get_author", p, err)
		return nil, false
	}
	return &author, true
}

// ListTopicKeys 返回 topics/ 下的 slug 列表。
func (r *Repository) ListTopicKeys() []string {
	return r.listKeys("list_topic_keys", topicsDir)
}

// GetTopic 读取主题记录。
func (r *Repository) GetTopic(slug string) (*Topic, bool) {
	var topic Topic
	p := path.Join(topicsDir, slug+jsonExt)
	if err := r.readJSON(p, &topic); err != nil {
		r.softFail("get_topic", p, err)
		return nil, false
	}
	return &topic, true
}

// RelatedBooks 按键顺序返回最多 limit 本其他书籍，跳过 slug 自身与无法读取的条目。
func (r *Repository) RelatedBooks(slug string, limit int) []Book {
	books := make([]Book, 0)
	if limit <= 0 {
		return books
	}
	for _, key := range r.ListBookKeys() {
		if key.Slug == slug {
			continue
		}
		if len(books) >= limit {
			break
		}
		if book, ok := r.GetBook(key.Category, key.Slug); ok {
			books = append(books, *book)
		}
	}
	return books
}

// SearchBooks 对书名与作者名做大小写不敏感的子串匹配（全量扫描）。
func (r *Repository) SearchBooks(query string) []Book {
	needle := strings.ToLower(query)
	results := make([]Book, 0)
	for _, key := range r.ListBookKeys() {
		book, ok := r.GetBook(key.Category, key.Slug)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(book.Title), needle) ||
			strings.Contains(strings.ToLower(book.Author.Name), needle) {
			results = append(results, *book)
		}
	}
	return results
}

// AllBooks 按键顺序读取全部可解析的书籍。
func (r *Repository) AllBooks() []Book {
	keys := r.ListBookKeys()
	books := make([]Book, 0, len(keys))
	for _, key := range keys {
		if book, ok := r.GetBook(key.Category, key.Slug); ok {
			books = append(books, *book)
		}
	}
	return books
}

func (r *Repository) listKeys(action, dir string) []string {
	slugs, err := r.jsonSlugs(dir)
	if err != nil {
		r.softFail(action, dir, err)
		return []string{}
	}
	return slugs
}

func (r *Repository) jsonSlugs(dir string) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, jsonExt) {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, jsonExt))
	}
	return slugs, nil
}

// readJSON 区分文件缺失（ErrNotFound）与解析失败（*DecodeError）。
func (r *Repository) readJSON(p string, dst any) error {
	raw, err := afero.ReadFile(r.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Path: p, Err: err}
	}
	return nil
}

func (r *Repository) softFail(action, p string, err error) {
	r.logger.WithFields(logrus.Fields{
		"action": action,
		"path":   p,
		"error":  err.Error(),
	}).Debug("content_unavailable")
}

func bookPath(category, slug string) string {
	return path.Join(booksDir, category, slug+jsonExt)
}
