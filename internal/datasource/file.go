package datasource

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a single datafile path whenever it changes on disk, grounded on the
// teacher's WatchedFileDataSource (ldfilewatch/watched_file_data_source.go) but simplified
// to one path and a caller-supplied callback instead of its own feature store.
type FileWatcher struct {
	path      string
	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	done      chan struct{}
}

// ReadFile loads path's full contents. Used both for the initial load and by FileWatcher's
// caller after each reload event.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// NewFileWatcher begins watching path's containing directory (watching the directory rather
// than the file handles editors that replace the file instead of writing in place). onChange
// is invoked on a background goroutine after each event naming path, whatever its kind
// (write, create, rename, remove or chmod).
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	fw := &FileWatcher{path: path, watcher: watcher, done: make(chan struct{})}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	go func() {
		for {
			select {
			case <-fw.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				eventAbs, err := filepath.Abs(event.Name)
				if err != nil {
					eventAbs = event.Name
				}
				if eventAbs == absPath {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return fw, nil
}

// Close stops the watcher goroutine and releases the underlying fsnotify watcher.
func (fw *FileWatcher) Close() error {
	fw.closeOnce.Do(func() { close(fw.done) })
	return fw.watcher.Close()
}
