package content

import (
	"errors"
	"io/fs"
	"path"
)

// AuditProblem 描述一个无法读取的内容文件。
type AuditProblem struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	// Missing 为 true 表示文件缺失，否则为格式错误或读取错误。
	Missing bool   `json:"missing"`
	Error   string `json:"error"`
}

// AuditReport 是严格扫描的结果。
type AuditReport struct {
	Books      int            `json:"books"`
	Authors    int            `json:"authors"`
	Topics     int            `json:"topics"`
	Categories int            `json:"categories"`
	Problems   []AuditProblem `json:"problems"`
}

// OK 表示没有发现问题。
func (a AuditReport) OK() bool {
	return len(a.Problems) == 0
}

// Audit 严格扫描内容目录，区分“文件缺失”与“文件损坏”，供 validate 命令使用。
func (r *Repository) Audit() AuditReport {
	report := AuditReport{Problems: []AuditProblem{}}

	keys, err := r.bookKeys()
	if err != nil {
		report.add("books", booksDir, err)
	}
	for _, key := range keys {
		var book Book
		if err := r.readJSON(bookPath(key.Category, key.Slug), &book); err != nil {
			report.add("book", bookPath(key.Category, key.Slug), err)
			continue
		}
		report.Books++
	}

	var categories []Category
	if err := r.readJSON(path.Join(booksDir, categoriesFile), &categories); err != nil {
		report.add("categories", path.Join(booksDir, categoriesFile), err)
	}
	report.Categories = len(categories)

	report.Authors = r.auditDir(&report, "author", authorsDir, func() any { return &Author{} })
	report.Topics = r.auditDir(&report, "topic", topicsDir, func() any { return &Topic{} })
	return report
}

func (r *Repository) auditDir(report *AuditReport, kind, dir string, target func() any) int {
	slugs, err := r.jsonSlugs(dir)
	if err != nil {
		report.add(kind+"s", dir, err)
		return 0
	}
	count := 0
	for _, slug := range slugs {
		p := path.Join(dir, slug+jsonExt)
		if err := r.readJSON(p, target()); err != nil {
			report.add(kind, p, err)
			continue
		}
		count++
	}
	return count
}

func (a *AuditReport) add(kind, p string, err error) {
	a.Problems = append(a.Problems, AuditProblem{
		Kind:    kind,
		Path:    p,
		Missing: errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist),
		Error:   err.Error(),
	})
}
