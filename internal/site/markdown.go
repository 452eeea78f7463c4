package site

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown 将书籍摘要转换为经过清洗的 HTML。
type Markdown struct {
	engine goldmark.Markdown
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewMarkdown 启用 GFM 扩展，并使用 UGC 白名单过滤输出。
func NewMarkdown() *Markdown {
	return &Markdown{
		engine: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
}

// Render 的结果可以直接嵌入模板。
func (m *Markdown) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(m.policy.SanitizeBytes(buf.Bytes())), nil
}

// PlainText 渲染后去掉全部标签，供结构化数据等纯文本字段使用。
// 原始 HTML 块（含 script）在渲染阶段即被省略。
func (m *Markdown) PlainText(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	text := html.UnescapeString(m.strict.Sanitize(buf.String()))
	return strings.Join(strings.Fields(text), " "), nil
}
