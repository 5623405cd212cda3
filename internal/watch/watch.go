package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"cxbin-converter/internal/logging"
)

// Handler is called once per container after it settles.
type Handler func(ctx context.Context, path string)

// Options configures a Watcher.
type Options struct {
	Recursive bool
	// Debounce is how long a file must stay quiet before it is handled;
	// slicers write containers in several chunks. Zero means 500ms.
	Debounce time.Duration
	Ext      string // container extension, matched case-insensitively
	Logger   *log.Logger
}

// Watcher converts containers as they are created or rewritten in a directory.
type Watcher struct {
	fs    *fsnotify.Watcher
	root  string
	opts  Options
	log   *log.Logger
	ready chan string
	done  chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New starts watching root.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Ext == "" {
		opts.Ext = ".cxbin"
	}
	l := opts.Logger
	if l == nil {
		l = logging.Discard()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:     fsw,
		root:   root,
		opts:   opts,
		log:    l,
		ready:  make(chan string),
		done:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}
	if err := w.add(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// add watches dir, and every directory below it in recursive mode.
func (w *Watcher) add(dir string) error {
	if !w.opts.Recursive {
		return w.fs.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Wants reports whether path names a container.
func (w *Watcher) Wants(path string) bool {
	return strings.EqualFold(filepath.Ext(path), w.opts.Ext) && !strings.HasPrefix(filepath.Base(path), ".")
}

// Run handles events until ctx is done. Handlers run one at a time on the
// calling goroutine.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.close()
	w.log.Info("watching", "dir", w.root, "recursive", w.opts.Recursive)
	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.event(e)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("events dropped", "err", err)
				continue
			}
			w.log.Error("watch failed", "err", err)

		case path := <-w.ready:
			if _, err := os.Stat(path); err != nil {
				continue
			}
			handle(ctx, path)
		}
	}
}

func (w *Watcher) event(e fsnotify.Event) {
	if e.Has(fsnotify.Create) && w.opts.Recursive {
		if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
			if err := w.add(e.Name); err != nil {
				w.log.Warn("cannot watch", "dir", e.Name, "err", err)
			}
			return
		}
	}
	if !w.Wants(e.Name) {
		return
	}
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		w.schedule(e.Name)
	}
}

// schedule (re)starts the quiet timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	close(w.done)
	w.fs.Close()
}
