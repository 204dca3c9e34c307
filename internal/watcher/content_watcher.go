package watcher

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/westernheights/website/internal/content"
	"github.com/westernheights/website/internal/metrics"
)

// ContentWatcher re-renders the static HTML and the sitemap whenever a source
// document under the content tree changes on disk.
type ContentWatcher struct {
	manager *content.Manager

	// debounce collapses the bursts of write events editors produce into a
	// single rebuild
	debounce time.Duration
}

// NewContentWatcher creates and returns a new ContentWatcher.
func NewContentWatcher(manager *content.Manager) *ContentWatcher {
	return &ContentWatcher{
		manager:  manager,
		debounce: 500 * time.Millisecond,
	}
}

// Start watches the services and blog directories until the process exits.
// This is a blocking function, run it in its own goroutine.
func (w *ContentWatcher) Start() {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[WATCHER] ERROR: could not start content watcher: %v", err)
		return
	}
	defer fsWatcher.Close()

	for _, sub := range []string{"services", "blog"} {
		dir := filepath.Join(w.manager.Dir, sub)
		if err := fsWatcher.Add(dir); err != nil {
			log.Printf("[WATCHER] ERROR: could not watch %s: %v", dir, err)
		}
	}
	log.Printf("[WATCHER] Watching content directory %s for changes...", w.manager.Dir)

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if !isSourceDocument(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Printf("[WATCHER] Content change detected: %s (%s)", event.Name, event.Op)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case <-rebuild:
			if err := w.manager.RebuildAll(); err != nil {
				log.Printf("[WATCHER] ERROR: rebuild failed: %v", err)
			} else {
				metrics.ContentRebuilds.Inc()
				log.Println("[WATCHER] Content rebuilt.")
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCHER] ERROR: %v", err)
		}
	}
}

// isSourceDocument filters out the HTML files the rebuild itself writes, so a
// rebuild never retriggers the watcher.
func isSourceDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".md", ".yaml", ".yml":
		return true
	}
	return false
}
