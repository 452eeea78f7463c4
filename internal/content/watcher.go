package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/leaftok/leaftok-site/internal/logging"
)

// DefaultDebounce 是合并连续文件事件的等待时间。
const DefaultDebounce = 300 * time.Millisecond

// Watcher 递归监听内容目录，在一批变更稳定后调用 onChange。
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *logrus.Entry
	watcher  *fsnotify.Watcher
}

// NewWatcher 注册 root 及其全部子目录。
func NewWatcher(root string, debounce time.Duration, logger *logrus.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		debounce: debounce,
		logger:   logging.Component(logger, "content_watcher"),
		watcher:  fw,
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// Run 阻塞直到 ctx 取消；onChange 收到本批次变更的文件路径。
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || isHidden(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.WithError(err).WithField("path", event.Name).Warn("content_watch_add_failed")
					}
				}
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				pending[w.root] = struct{}{}
				timer.Reset(w.debounce)
			}
			w.logger.WithError(err).Warn("content_watch_error")
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			w.logger.WithField("changed", len(paths)).Info("content_changed")
			onChange(paths)
		}
	}
}

func isHidden(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
