package site

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/leaftok/leaftok-site/internal/config"
	"github.com/leaftok/leaftok-site/internal/content"
	"github.com/leaftok/leaftok-site/internal/logging"
	"github.com/leaftok/leaftok-site/internal/seo"
)

// Options 配置一次构建。
type Options struct {
	Repository *content.Repository
	Site       config.SiteConfig
	// Output 是输出根目录对应的文件系统。
	Output afero.Fs
	// Static 可选，其内容会原样复制到输出根目录。
	Static      afero.Fs
	Concurrency int
	Logger      *logrus.Logger
	Now         func() time.Time
}

// Result 汇总一次构建。
type Result struct {
	Pages  int
	Assets int
	Files  []string
	// Removed 是上次构建遗留、本次已删除的文件数。
	Removed  int
	Duration time.Duration
}

// Builder 渲染整站。
type Builder struct {
	opts     Options
	renderer *Renderer
	seo      *seo.Generator
	markdown *Markdown
	logger   *logrus.Entry
}

// NewBuilder 解析模板并校验必需的依赖。
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Repository == nil {
		return nil, fmt.Errorf("site builder requires a content repository")
	}
	if opts.Output == nil {
		return nil, fmt.Errorf("site builder requires an output filesystem")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscard()
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Builder{
		opts:     opts,
		renderer: renderer,
		seo:      seo.New(opts.Site),
		markdown: NewMarkdown(),
		logger:   logging.Component(opts.Logger, "site"),
	}, nil
}

// Build 并发渲染全部页面，随后写出 sitemap.xml、robots.txt 与静态资源。
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	started := b.opts.Now()
	p := &planner{repo: b.opts.Repository, seo: b.seo, markdown: b.markdown, now: started}
	pages, err := p.plan()
	if err != nil {
		return nil, err
	}

	files := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := b.renderer.Render(&buf, page.Template, page.Data); err != nil {
				return fmt.Errorf("render %s: %w", page.Path, err)
			}
			name := page.OutputFile()
			if err := b.write(name, buf.Bytes()); err != nil {
				return err
			}
			files[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sitemap bytes.Buffer
	if err := WriteSitemap(&sitemap, SitemapEntries(b.seo, b.opts.Repository, started)); err != nil {
		return nil, err
	}
	if err := b.write("sitemap.xml", sitemap.Bytes()); err != nil {
		return nil, err
	}
	if err := b.write("robots.txt", []byte(RobotsTxt(b.opts.Site.URL))); err != nil {
		return nil, err
	}
	files = append(files, "sitemap.xml", "robots.txt")

	assets, err := b.copyAssets()
	if err != nil {
		return nil, err
	}
	files = append(files, assets...)
	sort.Strings(files)

	removed, err := b.prune(files)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Pages:    len(pages),
		Assets:   len(assets),
		Files:    files,
		Removed:  removed,
		Duration: b.opts.Now().Sub(started),
	}
	b.logger.WithFields(logrus.Fields{
		"action":   "build",
		"pages":    result.Pages,
		"assets":   result.Assets,
		"removed":  result.Removed,
		"duration": result.Duration.String(),
	}).Info("site_built")
	return result, nil
}

func (b *Builder) write(name string, data []byte) error {
	if dir := path.Dir(name); dir != "." {
		if err := b.opts.Output.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(b.opts.Output, name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// prune 删除输出目录中不属于本次构建的文件，并清理随之变空的目录。
func (b *Builder) prune(files []string) (int, error) {
	keep := make(map[string]struct{}, len(files))
	for _, name := range files {
		keep[name] = struct{}{}
	}
	var stale, dirs []string
	err := afero.Walk(b.opts.Output, ".", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		name := filepath.ToSlash(p)
		if info.IsDir() {
			if name != "." {
				dirs = append(dirs, p)
			}
			return nil
		}
		if _, ok := keep[name]; !ok {
			stale = append(stale, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan output: %w", err)
	}
	for _, p := range stale {
		if err := b.opts.Output.Remove(p); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("remove stale %s: %w", p, err)
		}
		b.logger.WithFields(logrus.Fields{"action": "prune", "path": filepath.ToSlash(p)}).Debug("stale_output_removed")
	}
	// 由深到浅，子目录清空后父目录才可能为空
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := afero.ReadDir(b.opts.Output, dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := b.opts.Output.Remove(dir); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("remove empty %s: %w", dir, err)
		}
	}
	return len(stale), nil
}

// copyAssets 先写内置资源，再覆盖为 Static 目录中的同名文件。
func (b *Builder) copyAssets() ([]string, error) {
	written := make(map[string]struct{})
	builtin := afero.NewBasePathFs(afero.FromIOFS{FS: staticFS}, "static")
	if err := b.copyTree(builtin, written); err != nil {
		return nil, err
	}
	if b.opts.Static != nil {
		if err := b.copyTree(b.opts.Static, written); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(written))
	for name := range written {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Builder) copyTree(src afero.Fs, written map[string]struct{}) error {
	return afero.Walk(src, string(filepath.Separator), func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(src, p)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", p, err)
		}
		name := filepath.ToSlash(p)
		for len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		if err := b.write(name, data); err != nil {
			return err
		}
		written[name] = struct{}{}
		return nil
	})
}
