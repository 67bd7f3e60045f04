package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// editors often save by writing several times or by renaming a temporary
// file, so events are collected for a while before reloading
const reloadDelay = 100 * time.Millisecond

// watcher watches the directory of a patch file; watching the file itself
// would lose it when an editor replaces the file.
type watcher struct {
	w    *fsnotify.Watcher
	file string
}

func newWatcher(filename string) (*watcher, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	return &watcher{w: w, file: abs}, nil
}

func (w *watcher) Close() error { return w.w.Close() }

// run calls reload after the file has been written or created, until ctx is
// done or the watcher closed.
func (w *watcher) run(ctx context.Context, reload func()) {
	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.file || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			log.Warn("watching patch file", "file", w.file, "err", err)
		case <-timer.C:
			reload()
		}
	}
}
