package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

type fileStamp struct {
	modTime time.Time
	size    int64
}

// PollSource detects changes by rescanning the tree at a fixed interval.
// It is the fallback when file notifications are unavailable.
type PollSource struct {
	root     string
	exclude  []string
	interval time.Duration
}

// NewPollSource creates a polling source
func NewPollSource(root string, excludeGlobs []string, interval time.Duration) *PollSource {
	return &PollSource{root: root, exclude: excludeGlobs, interval: interval}
}

// Run scans until ctx is cancelled. The first scan only records the
// baseline; files present at startup do not produce events.
func (p *PollSource) Run(ctx context.Context, events chan<- Event) error {
	previous := p.scan()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current := p.scan()
			for _, ev := range diff(previous, current) {
				send(ctx, events, ev)
			}
			previous = current
		}
	}
}

func (p *PollSource) scan() map[string]fileStamp {
	files := make(map[string]fileStamp)
	filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if excludedDir(p.exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matchAny(p.exclude, rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[rel] = fileStamp{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return files
}

// diff returns the events that turn previous into current, sorted by path
func diff(previous, current map[string]fileStamp) []Event {
	var out []Event
	for path, stamp := range current {
		old, ok := previous[path]
		switch {
		case !ok:
			out = append(out, Event{Kind: EventAdd, Path: path})
		case !old.modTime.Equal(stamp.modTime) || old.size != stamp.size:
			out = append(out, Event{Kind: EventChange, Path: path})
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			out = append(out, Event{Kind: EventUnlink, Path: path})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
