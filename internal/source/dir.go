package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DoneFile ends a watched stream when it appears in the directory.
const DoneFile = "done"

// DirSource yields one frame per *.json file written into a directory. Files
// present when watching starts are replayed first in name order; later files
// are yielded as they are written. A file that does not decode yet (still
// being written) is retried on its next write event.
type DirSource struct {
	dir     string
	w       *fsnotify.Watcher
	log     *zap.Logger
	pending []string
	seen    map[string]bool
}

// WatchDir starts watching dir. The caller must Close the source.
func WatchDir(dir string, log *zap.Logger) (*DirSource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	d := &DirSource{dir: dir, w: w, log: log, seen: make(map[string]bool)}
	for _, e := range entries {
		if !e.IsDir() {
			d.pending = append(d.pending, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(d.pending)
	return d, nil
}

// Next implements PoseSource.
func (d *DirSource) Next(ctx context.Context) (LiveFrame, error) {
	for len(d.pending) > 0 {
		path := d.pending[0]
		d.pending = d.pending[1:]
		if f, ok, done := d.consider(path); done {
			return LiveFrame{}, io.EOF
		} else if ok {
			return f, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return LiveFrame{}, ctx.Err()
		case ev, ok := <-d.w.Events:
			if !ok {
				return LiveFrame{}, io.EOF
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if f, ok, done := d.consider(ev.Name); done {
				return LiveFrame{}, io.EOF
			} else if ok {
				return f, nil
			}
		case err, ok := <-d.w.Errors:
			if !ok {
				return LiveFrame{}, io.EOF
			}
			return LiveFrame{}, fmt.Errorf("watch %s: %w", d.dir, err)
		}
	}
}

func (d *DirSource) consider(path string) (f LiveFrame, ok, done bool) {
	name := filepath.Base(path)
	if name == DoneFile {
		return LiveFrame{}, false, true
	}
	if !strings.HasSuffix(name, ".json") || d.seen[path] {
		return LiveFrame{}, false, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		d.log.Debug("frame file not readable yet", zap.String("path", path), zap.Error(err))
		return LiveFrame{}, false, false
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		d.log.Debug("frame file incomplete", zap.String("path", path), zap.Error(err))
		return LiveFrame{}, false, false
	}
	d.seen[path] = true
	return r.frame(), true, false
}

// Close stops watching.
func (d *DirSource) Close() error { return d.w.Close() }
