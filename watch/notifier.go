package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/tomb.v2"
)

// Notifier delivers file modifications below a root directory. fsnotify
// only watches single directories, so every subdirectory is added on start
// and whenever one is created.
type Notifier struct {
	root    string
	onPath  func(string)
	skipDir func(string) bool

	watcher *fsnotify.Watcher
	started bool
	t       tomb.Tomb
	logger  *log.Entry
}

// NewNotifier creates a notifier for root. skipDir, when set, prunes
// directories (given as absolute paths) from the watch.
func NewNotifier(root string, onPath func(string), skipDir func(string) bool) (*Notifier, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create fsnotify watcher: %w", err)
	}
	return &Notifier{
		root:    root,
		onPath:  onPath,
		skipDir: skipDir,
		watcher: w,
		logger:  log.WithField("goroutine", "fsnotify"),
	}, nil
}

func (n *Notifier) Start() error {
	if err := n.addTree(n.root); err != nil {
		_ = n.watcher.Close()
		return err
	}
	n.started = true
	n.t.Go(n.loop)
	n.logger.Debugf("watching %d directories below %s", len(n.watcher.WatchList()), n.root)
	return nil
}

// Stop ends the event loop and waits for it to return.
func (n *Notifier) Stop() error {
	if !n.started {
		return n.watcher.Close()
	}
	n.t.Kill(nil)
	return n.t.Wait()
}

func (n *Notifier) addTree(dir string) error {
	return filepath.WalkDir(dir, func(fn string, d fs.DirEntry, err error) error {
		if err != nil {
			if fn != dir && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fn != n.root && n.skipDir != nil && n.skipDir(fn) {
			return filepath.SkipDir
		}
		if err := n.watcher.Add(fn); err != nil {
			return fmt.Errorf("could not watch %s: %w", fn, err)
		}
		return nil
	})
}

func (n *Notifier) loop() error {
	for {
		select {
		case <-n.t.Dying():
			if err := n.watcher.Close(); err != nil {
				return fmt.Errorf("could not remove all inotify watches: %w", err)
			}
			return nil

		case event, ok := <-n.watcher.Events:
			if !ok {
				return nil
			}
			n.handle(event)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return nil
			}
			n.logger.Errorf("error while watching %s: %s", n.root, err)
		}
	}
}

func (n *Notifier) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := n.addTree(event.Name); err != nil {
				n.logger.Warnf("%s", err)
			}
		}
	}
	// editors saving through rename surface as Create
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		n.onPath(event.Name)
	}
}
