package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect runs src and records its events until the test ends
func collect(t *testing.T, src EventSource) func() []Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 64)

	var mu sync.Mutex
	var seen []Event
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		src.Run(ctx, events)
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				mu.Lock()
				seen = append(seen, ev)
				mu.Unlock()
			}
		}
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), seen...)
	}
}

func hasEvent(events []Event, path string, kinds ...EventKind) bool {
	for _, ev := range events {
		if ev.Path != path {
			continue
		}
		for _, k := range kinds {
			if ev.Kind == k {
				return true
			}
		}
	}
	return false
}

func TestDiff(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	previous := map[string]fileStamp{
		"src/a.tsx": {modTime: t0, size: 10},
		"src/b.tsx": {modTime: t0, size: 10},
		"src/c.tsx": {modTime: t0, size: 10},
		"src/d.tsx": {modTime: t0, size: 10},
	}
	current := map[string]fileStamp{
		"src/a.tsx": {modTime: t0, size: 10},
		"src/b.tsx": {modTime: t0.Add(time.Second), size: 10},
		"src/d.tsx": {modTime: t0, size: 11},
		"src/e.tsx": {modTime: t0, size: 1},
	}

	assert.Equal(t, []Event{
		{Kind: EventChange, Path: "src/b.tsx"},
		{Kind: EventUnlink, Path: "src/c.tsx"},
		{Kind: EventChange, Path: "src/d.tsx"},
		{Kind: EventAdd, Path: "src/e.tsx"},
	}, diff(previous, current))

	assert.Empty(t, diff(previous, previous))
}

func TestPollSourceScanSkipsExcluded(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"src/a.tsx", "node_modules/x/index.js", ".webcheck/history.db"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	p := NewPollSource(root, []string{"**/node_modules/**", ".webcheck/**"}, time.Second)
	files := p.scan()

	assert.Len(t, files, 1)
	assert.Contains(t, files, "src/a.tsx")
}

func TestPollSourceEmitsEvents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	existing := filepath.Join(root, "src", "old.tsx")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))

	events := collect(t, NewPollSource(root, nil, 20*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "new.tsx"), []byte("new"), 0644))
	require.NoError(t, os.Remove(existing))

	require.Eventually(t, func() bool {
		seen := events()
		return hasEvent(seen, "src/new.tsx", EventAdd) && hasEvent(seen, "src/old.tsx", EventUnlink)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFSNotifySourceEmitsEvents(t *testing.T) {
	root := t.TempDir()

	src, err := NewFSNotifySource(root, []string{"**/node_modules/**"})
	require.NoError(t, err)
	events := collect(t, src)

	require.NoError(t, os.WriteFile(filepath.Join(root, "App.tsx"), []byte("x"), 0644))
	require.Eventually(t, func() bool {
		return hasEvent(events(), "App.tsx", EventAdd, EventChange)
	}, 5*time.Second, 20*time.Millisecond)

	// Directories created after startup are watched too
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pages"), 0755))
	require.Eventually(t, func() bool {
		if err := os.WriteFile(filepath.Join(root, "src", "pages", "Home.tsx"), []byte("x"), 0644); err != nil {
			return false
		}
		return hasEvent(events(), "src/pages/Home.tsx", EventAdd, EventChange)
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "App.tsx")))
	require.Eventually(t, func() bool {
		return hasEvent(events(), "App.tsx", EventUnlink)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestExcludedDir(t *testing.T) {
	globs := []string{"**/node_modules/**", ".webcheck/**", "**/.git/**"}
	assert.True(t, excludedDir(globs, "node_modules"))
	assert.True(t, excludedDir(globs, "web/node_modules"))
	assert.True(t, excludedDir(globs, ".webcheck"))
	assert.True(t, excludedDir(globs, ".git"))
	assert.False(t, excludedDir(globs, "src"))
	assert.False(t, excludedDir(globs, "."))
}
