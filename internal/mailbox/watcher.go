package mailbox

import (
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher wakes the engine as soon as a message file lands in a watched
// inbox, instead of waiting out the poll interval. It is an accelerant
// only: the engine's tick still polls, so dropped filesystem events are
// at worst a delay of one interval.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan struct{}

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewWatcher starts watching the inbox directories of the given roles
// under the store. Inboxes that do not exist yet are created so they
// can be watched immediately.
func NewWatcher(store *Store, roles []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		events:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	for _, role := range roles {
		dir := store.InboxDir(role)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = fw.Close()
			return nil, err
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

// Events returns a channel that receives a signal whenever a message
// file appears or changes. The channel is coalescing: bursts of file
// activity collapse into a single pending signal.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default: // a signal is already pending
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are tolerable: polling still covers delivery.
		}
	}
}

// relevant filters for completed message writes: renames (the store's
// atomic write finishes with one) and creates of .json files.
func relevant(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".json") {
		return false
	}
	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) || ev.Op.Has(fsnotify.Write)
}
