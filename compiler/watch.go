package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/loomql/loom/config"
	"github.com/loomql/loom/errors"
	"github.com/loomql/loom/logger"
)

// Watch builds every project, then rebuilds whenever a watched source
// changes. Bursts of events within the configured debounce window collapse
// into one rebuild. Each cycle reloads sources from scratch; there is no
// incremental state to invalidate. Config changes are not picked up,
// restart the watcher for those.
//
// onReport receives the report of every completed cycle, including the
// initial one. It may be nil. Watch returns when ctx is canceled or the
// watcher fails.
func (c *Compiler) Watch(ctx context.Context, onReport func(*Report)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := c.addWatchDirs(watcher); err != nil {
		return err
	}

	debounce := time.Duration(c.cfg.Watch.DebounceMS) * time.Millisecond
	if debounce <= 0 {
		debounce = config.DefaultWatchDebounceMS * time.Millisecond
	}

	rebuild := func() {
		report, err := c.BuildAll(ctx)
		if err != nil {
			c.log.Errorw("rebuild failed", logger.FieldError, err)
			return
		}
		if onReport != nil {
			onReport(report)
		}
	}

	rebuild()
	c.log.Infow("watching for changes", "debounce_ms", debounce.Milliseconds())

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if logger.ShouldLogTrace(logger.Verbosity) {
				c.log.Debugw("fs event", logger.FieldPath, event.Name, "op", event.Op.String())
			}
			relevant := c.relevantChange(event)
			if event.Has(fsnotify.Create) {
				// New directories under a watched root need their own
				// watch; fsnotify does not recurse. Files landing in the
				// directory may have raced the registration, so the
				// directory itself counts as a change and the rebuild's
				// reglob picks them up.
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() && !c.underOutput(event.Name) {
					if addErr := watcher.Add(event.Name); addErr != nil {
						c.log.Debugw("cannot watch new directory", logger.FieldPath, event.Name, logger.FieldError, addErr)
					}
					relevant = true
				}
			}
			if !relevant {
				continue
			}
			c.log.Debugw("source changed", logger.FieldFile, event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
				pending = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warnw("watch error", logger.FieldError, err)

		case <-pending:
			timer = nil
			pending = nil
			rebuild()
		}
	}
}

// addWatchDirs watches every directory that can hold project sources:
// schema and extension directories plus the static roots of each document
// glob, walked recursively.
func (c *Compiler) addWatchDirs(watcher *fsnotify.Watcher) error {
	dirs := make(map[string]bool)
	for _, name := range c.cfg.ProjectNames() {
		project := c.cfg.Projects[name]
		dirs[filepath.Dir(filepath.Join(c.cfg.Dir, project.Schema))] = true
		for _, ext := range project.Extensions {
			dirs[filepath.Dir(filepath.Join(c.cfg.Dir, ext))] = true
		}
		for _, pattern := range project.Documents {
			root, _ := doublestar.SplitPattern(filepath.ToSlash(filepath.Join(c.cfg.Dir, pattern)))
			walkErr := filepath.Walk(filepath.FromSlash(root), func(path string, info os.FileInfo, err error) error {
				if err != nil {
					// The root may not exist yet; its create event will
					// register it.
					return nil
				}
				if info.IsDir() && !c.underOutput(path) {
					dirs[path] = true
				}
				return nil
			})
			if walkErr != nil {
				return errors.Wrapf(walkErr, "failed to scan %s", root)
			}
		}
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			c.log.Warnw("cannot watch directory", logger.FieldPath, dir, logger.FieldError, err)
		}
	}
	return nil
}

// relevantChange filters events down to GraphQL sources outside any
// output directory, so artifact writes never trigger rebuild loops.
func (c *Compiler) relevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !strings.HasSuffix(event.Name, ".graphql") {
		return false
	}
	return !c.underOutput(event.Name)
}

func (c *Compiler) underOutput(path string) bool {
	for _, name := range c.cfg.ProjectNames() {
		out := filepath.Join(c.cfg.Dir, c.cfg.Projects[name].Output)
		if path == out || strings.HasPrefix(path, out+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
