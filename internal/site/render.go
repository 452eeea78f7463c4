package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/leaftok/leaftok-site/internal/config"
	"github.com/leaftok/leaftok-site/internal/seo"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// 页面模板名，对应 templates/<name>.html。
const (
	tplHome      = "home"
	tplBooks     = "books"
	tplCategory  = "category"
	tplBook      = "book"
	tplAuthor    = "author"
	tplTopic     = "topic"
	tplChangelog = "changelog"
	tplPrivacy   = "privacy"
	tplNotFound  = "notfound"
)

var pageTemplates = []string{
	tplHome, tplBooks, tplCategory, tplBook, tplAuthor, tplTopic, tplChangelog, tplPrivacy, tplNotFound,
}

// PageData 是布局模板的输入。
type PageData struct {
	Lang        string
	Title       string
	Meta        seo.Metadata
	Schemas     []template.JS
	Breadcrumbs []seo.Breadcrumb
	Site        config.SiteConfig
	Year        int
	Body        any
}

// Renderer 持有解析好的模板集合，可并发使用。
type Renderer struct {
	templates map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"lastIndex": func(crumbs []seo.Breadcrumb) int {
		return len(crumbs) - 1
	},
	"trimAt": func(handle string) string {
		return strings.TrimPrefix(handle, "@")
	},
}

// NewRenderer 为每个页面单独组合 layout 与内容模板。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		tpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = tpl
	}
	return r, nil
}

// Render 以 layout 为入口渲染页面。
func (r *Renderer) Render(w io.Writer, name string, data PageData) error {
	tpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	return tpl.ExecuteTemplate(w, "layout", data)
}

func schemaScripts(schemas ...seo.Schema) ([]template.JS, error) {
	out := make([]template.JS, 0, len(schemas))
	for _, schema := range schemas {
		raw, err := schema.JSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", schema.Type(), err)
		}
		out = append(out, template.JS(raw))
	}
	return out, nil
}
