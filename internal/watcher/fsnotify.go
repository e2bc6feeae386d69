package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FSNotifySource emits events from the operating system's file
// notifications. Every non-excluded directory under the root is watched,
// including directories created later.
type FSNotifySource struct {
	root    string
	exclude []string
	watcher *fsnotify.Watcher
}

// NewFSNotifySource creates the underlying watcher and registers the
// directory tree. An error here means notifications are unavailable and the
// caller should fall back to polling.
func NewFSNotifySource(root string, excludeGlobs []string) (*FSNotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch init failed: %w", err)
	}

	s := &FSNotifySource{root: root, exclude: excludeGlobs, watcher: w}
	if err := s.addRecursive(root, nil); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch failed: %w", err)
	}
	return s, nil
}

// Run forwards events until ctx is cancelled. It closes the watcher on return.
func (s *FSNotifySource) Run(ctx context.Context, events chan<- Event) error {
	defer s.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			s.handle(ctx, ev, events)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			log.Printf("Warning: watch error: %v", err)
		}
	}
}

func (s *FSNotifySource) handle(ctx context.Context, ev fsnotify.Event, events chan<- Event) {
	rel, ok := s.relative(ev.Name)
	if !ok {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			// Files written before the directory watch was registered are
			// reported as adds.
			var found []string
			if err := s.addRecursive(ev.Name, &found); err != nil {
				log.Printf("Warning: failed to watch %s: %v", rel, err)
			}
			for _, p := range found {
				send(ctx, events, Event{Kind: EventAdd, Path: p})
			}
			return
		}
		send(ctx, events, Event{Kind: EventAdd, Path: rel})

	case ev.Has(fsnotify.Write):
		send(ctx, events, Event{Kind: EventChange, Path: rel})

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		send(ctx, events, Event{Kind: EventUnlink, Path: rel})
	}
}

// addRecursive watches dir and its non-excluded subdirectories. When found
// is non-nil, regular files seen along the way are appended to it.
func (s *FSNotifySource) addRecursive(dir string, found *[]string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, ok := s.relative(path)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if excludedDir(s.exclude, rel) {
				return filepath.SkipDir
			}
			return s.watcher.Add(path)
		}
		if found != nil && d.Type().IsRegular() {
			*found = append(*found, rel)
		}
		return nil
	})
}

func (s *FSNotifySource) relative(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func send(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
