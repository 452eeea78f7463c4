package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leaftok/leaftok-site/internal/content"
)

// errContentInvalid 表示内容目录存在缺失、损坏、失效引用或不合格书籍。
var errContentInvalid = errors.New("内容校验未通过")

// validationReport 是 validate 命令输出的 JSON。
type validationReport struct {
	Audit           content.AuditReport      `json:"audit"`
	References      []content.ReferenceIssue `json:"references"`
	Quality         content.BatchReport      `json:"quality"`
	Cannibalization []content.KeywordOverlap `json:"keywordCannibalization"`
	Duplicates      []content.DuplicatePair  `json:"duplicateContent"`
}

// OK 只看硬性问题；关键词重叠与相似内容仅作提示。
func (r validationReport) OK() bool {
	return r.Audit.OK() && len(r.References) == 0 && r.Quality.InvalidBooks == 0
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "校验内容目录的完整性与质量",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(opts.configPath())
			if err != nil {
				return err
			}
			return runValidate(env, stdOut)
		},
	}
}

func runValidate(env *cliEnv, out io.Writer) error {
	repo := env.repository()
	books := repo.AllBooks()
	report := validationReport{
		Audit:           repo.Audit(),
		References:      content.CheckReferences(repo),
		Quality:         content.ValidateBatch(books),
		Cannibalization: content.CheckKeywordCannibalization(books),
		Duplicates:      content.CheckDuplicateContent(books),
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	env.logger.WithFields(logrus.Fields{
		"action":        "validate",
		"books":         report.Audit.Books,
		"problems":      len(report.Audit.Problems),
		"references":    len(report.References),
		"invalid_books": report.Quality.InvalidBooks,
		"average_score": report.Quality.AverageScore,
		"overlaps":      len(report.Cannibalization),
		"duplicates":    len(report.Duplicates),
	}).Info("content_validated")

	if !report.OK() {
		return errContentInvalid
	}
	return nil
}
