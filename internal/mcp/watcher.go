package mcp

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloadable is an interface for components that can be reloaded.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// ArtifactWatcher reloads a component whenever the call graph artifact is rewritten.
type ArtifactWatcher struct {
	reloadable   Reloadable
	watcher      *fsnotify.Watcher
	artifact     string // Base name of the watched file
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// NewArtifactWatcher watches the directory holding artifactPath.
// The artifact is replaced by rename, so the directory is watched rather than the file.
func NewArtifactWatcher(reloadable Reloadable, artifactPath string) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(artifactPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ArtifactWatcher{
		reloadable:   reloadable,
		watcher:      watcher,
		artifact:     filepath.Base(artifactPath),
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins watching for artifact changes.
func (aw *ArtifactWatcher) Start(ctx context.Context) {
	go aw.watch(ctx)
}

// Stop stops the watcher. Safe to call more than once, and before Start.
func (aw *ArtifactWatcher) Stop() {
	aw.stopOnce.Do(func() {
		close(aw.stopCh)
		aw.watcher.Close()
	})
}

// Wait blocks until the watch goroutine has exited.
func (aw *ArtifactWatcher) Wait() {
	<-aw.doneCh
}

// watch is the main event loop with debouncing logic.
func (aw *ArtifactWatcher) watch(ctx context.Context) {
	defer close(aw.doneCh)

	var debounceTimer *time.Timer
	reloadCh := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-aw.stopCh:
			return

		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}

			// Only care about the artifact being written or renamed into place
			if filepath.Base(event.Name) != aw.artifact || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(aw.debounceTime, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			aw.triggerReload(ctx)

		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Artifact watcher error: %v", err)
		}
	}
}

// triggerReload executes a reload of the reloadable component.
func (aw *ArtifactWatcher) triggerReload(ctx context.Context) {
	log.Printf("Reloading call graph...")
	start := time.Now()

	if err := aw.reloadable.Reload(ctx); err != nil {
		log.Printf("Error reloading: %v (keeping old state)", err)
		return
	}

	log.Printf("Reloaded successfully in %v", time.Since(start))
}
