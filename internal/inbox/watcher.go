package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets a writer finish before a file is read.
const settleDelay = 200 * time.Millisecond

// Watch processes pending files, then watches the directory and processes
// new or rewritten files until ctx is cancelled.
func (in *Inbox) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(in.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", in.dir, err)
	}
	if err := in.Sync(ctx); err != nil {
		in.logger.Warn("inbox: initial sync failed", slog.String("error", err.Error()))
	}
	in.logger.Info("inbox: watching", slog.String("dir", in.dir))

	pending := make(map[string]struct{})
	var (
		settleTimer *time.Timer
		settleCh    <-chan time.Time
	)
	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			in.logger.Info("inbox: stopped")
			return nil

		case <-settleCh:
			for path := range pending {
				delete(pending, path)
				if err := in.Process(ctx, path); err != nil {
					in.logger.Warn("inbox: process failed", slog.String("path", path), slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !Accepts(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
