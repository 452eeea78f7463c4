package content

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// 书籍摘要页的质量阈值。
const (
	minimumWordCount     = 300
	minimumKeyTakeaways  = 3
	minimumFAQs          = 2
	minimumDescWordCount = 20
)

// 各类问题的扣分。
const (
	penaltyMissingField = 20
	penaltyShortSummary = 15
	penaltyTakeaways    = 10
	penaltyFewFAQs      = 5
	penaltyThinDesc     = 5
	penaltyAuthorRef    = 10
	penaltyCategoryRef  = 10
)

var (
	validate *validator.Validate
	isbn10   = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13   = regexp.MustCompile(`^\d{13}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = validate.RegisterValidation("isbn", validateISBN)
}

func validateISBN(fl validator.FieldLevel) bool {
	isbn := strings.NewReplacer("-", "", " ", "").Replace(fl.Field().String())
	switch len(isbn) {
	case 10:
		return isbn10.MatchString(isbn)
	case 13:
		return isbn13.MatchString(isbn)
	}
	return false
}

// Severity 区分错误与警告。
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue 是一条质量问题。
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult 是单本书的质量评估。
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Score    int     `json:"score"`
	Issues   []Issue `json:"issues"`
	Warnings []Issue `json:"warnings"`
}

// ValidateBook 按必填字段、篇幅与引用完整性给书籍打分，起始 100 分，最低 0 分。
func ValidateBook(book Book) ValidationResult {
	result := ValidationResult{Issues: []Issue{}, Warnings: []Issue{}}
	score := 100

	errorf := func(field, format string, args ...any) {
		result.Issues = append(result.Issues, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
	}
	warnf := func(field, format string, args ...any) {
		result.Warnings = append(result.Warnings, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
	}

	var authorRef, categoryRef, badISBN bool
	if err := validate.Struct(book); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				switch {
				case strings.HasPrefix(fe.Namespace(), "Book.author."):
					authorRef = true
				case strings.HasPrefix(fe.Namespace(), "Book.category."):
					categoryRef = true
				case fe.Field() == "isbn":
					badISBN = true
				case fe.Tag() == "required":
					if fe.Field() == "keyTakeaways" {
						continue
					}
					errorf(fe.Field(), "Missing required field: %s", fe.Field())
					score -= penaltyMissingField
				}
			}
		}
	}
	for _, ref := range []struct {
		field string
		empty bool
	}{
		{"author", book.Author == AuthorRef{}},
		{"category", book.Category == CategoryRef{}},
		{"keyTakeaways", book.KeyTakeaways == nil},
	} {
		if ref.empty {
			errorf(ref.field, "Missing required field: %s", ref.field)
			score -= penaltyMissingField
		}
	}

	if book.Summary != "" {
		if words := countWords(book.Summary); words < minimumWordCount {
			errorf("summary", "Summary too short: %d words (minimum: %d)", words, minimumWordCount)
			score -= penaltyShortSummary
		}
	}
	if len(book.KeyTakeaways) < minimumKeyTakeaways {
		errorf("keyTakeaways", "Not enough key takeaways: %d (minimum: %d)", len(book.KeyTakeaways), minimumKeyTakeaways)
		score -= penaltyTakeaways
	}
	if len(book.FAQ) < minimumFAQs {
		warnf("faq", "Few FAQs: %d (recommended: %d+)", len(book.FAQ), minimumFAQs)
		score -= penaltyFewFAQs
	}
	if book.Description != "" && countWords(book.Description) < minimumDescWordCount {
		warnf("description", "Description may be too short for good SEO")
		score -= penaltyThinDesc
	}
	if authorRef && book.Author != (AuthorRef{}) {
		errorf("author", "Author must have both slug and name")
		score -= penaltyAuthorRef
	}
	if categoryRef && book.Category != (CategoryRef{}) {
		errorf("category", "Category must have both slug and name")
		score -= penaltyCategoryRef
	}
	if badISBN {
		warnf("isbn", "ISBN should have 10 or 13 digits")
	}

	result.Valid = len(result.Issues) == 0
	result.Score = max(0, score)
	return result
}

// BookResult 关联 slug 与其评估结果。
type BookResult struct {
	Slug   string           `json:"slug"`
	Result ValidationResult `json:"result"`
}

// BatchReport 汇总一批书籍的质量。
type BatchReport struct {
	TotalBooks   int          `json:"totalBooks"`
	ValidBooks   int          `json:"validBooks"`
	InvalidBooks int          `json:"invalidBooks"`
	AverageScore int          `json:"averageScore"`
	Results      []BookResult `json:"results"`
}

// ValidateBatch 逐本评估并计算平均分（四舍五入）；空输入平均分为 0。
func ValidateBatch(books []Book) BatchReport {
	report := BatchReport{TotalBooks: len(books), Results: make([]BookResult, 0, len(books))}
	total := 0
	for _, book := range books {
		result := ValidateBook(book)
		if result.Valid {
			report.ValidBooks++
		}
		total += result.Score
		report.Results = append(report.Results, BookResult{Slug: book.Slug, Result: result})
	}
	report.InvalidBooks = report.TotalBooks - report.ValidBooks
	if len(books) > 0 {
		report.AverageScore = int(math.Round(float64(total) / float64(len(books))))
	}
	return report
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
