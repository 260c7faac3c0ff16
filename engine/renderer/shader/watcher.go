package shader

import (
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change before reporting.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to surface shading modules in a directory. Bursts of file
// events are coalesced into one notification carrying the changed file names.
type Watcher struct {
	watcher  *fsnotify.Watcher
	ext      string
	debounce time.Duration
	logger   *log.Logger

	changes chan []string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewWatcher starts watching dir for changes to files with extension ext.
//
// Parameters:
//   - dir: the module directory
//   - ext: the module extension, DefaultModuleExtension when empty
//   - debounce: the quiet period before reporting, DefaultDebounce when zero
//   - logger: receives watch errors, log.Default() when nil
//
// Returns:
//   - *Watcher: the running watcher
//   - error: if the directory cannot be watched
func NewWatcher(dir, ext string, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create shader watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch shader directory %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:  fw,
		ext:      ext,
		debounce: debounce,
		logger:   logger,
		changes:  make(chan []string, 1),
		done:     make(chan struct{}),
	}
	if w.ext == "" {
		w.ext = DefaultModuleExtension
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.Default()
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Changes delivers the sorted names of modules changed since the last notification.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Close stops the watcher and closes the Changes channel.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != w.ext {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending[filepath.Base(event.Name)] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("[Watcher] %v", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			slices.Sort(names)
			clear(pending)
			select {
			case w.changes <- names:
			case <-w.done:
				return
			}
		}
	}
}
