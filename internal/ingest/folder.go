package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tracelens/trace-console/internal/artifact"
)

// FolderOptions controls the folder source behavior.
type FolderOptions struct {
	Dir    string
	Logger *log.Logger
	// Debounce collapses bursts of file events (editors and extraction tools
	// write dumps in several syscalls) into one reload. Defaults to 500ms.
	Debounce time.Duration
}

// FolderSource reads device artifact dumps from a directory. It satisfies the
// same contract as the backend client, so a session can analyze offline dumps.
type FolderSource struct {
	opts FolderOptions
}

// NewFolderSource constructs a folder source.
func NewFolderSource(opts FolderOptions) (*FolderSource, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[ingest-folder] ", log.LstdFlags)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat artifact dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", opts.Dir)
	}
	return &FolderSource{opts: opts}, nil
}

// Artifacts reads the dump files from the directory. The messages dump is
// required; missing calls/contacts dumps load as empty collections so a
// partial extraction can still be reviewed.
func (fs *FolderSource) Artifacts(ctx context.Context) (*artifact.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bundle := &artifact.Bundle{}

	data, err := os.ReadFile(filepath.Join(fs.opts.Dir, MessagesFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", MessagesFile, err)
	}
	if bundle.Messages, err = ParseMessages(data); err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(filepath.Join(fs.opts.Dir, CallsFile)); err == nil {
		if bundle.Calls, err = ParseCalls(data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", CallsFile, err)
	}

	if data, err := os.ReadFile(filepath.Join(fs.opts.Dir, ContactsFile)); err == nil {
		if bundle.Contacts, err = ParseContacts(data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", ContactsFile, err)
	}

	if data, err := os.ReadFile(filepath.Join(fs.opts.Dir, DeviceFile)); err == nil {
		if bundle.DeviceName, err = ParseDevice(data); err != nil {
			return nil, err
		}
	}

	fs.opts.Logger.Printf("Loaded dump from %s: %d messages, %d calls, %d contacts",
		fs.opts.Dir, len(bundle.Messages), len(bundle.Calls), len(bundle.Contacts))
	return bundle, nil
}

// Watch blocks until ctx is done, invoking onChange after any dump file in
// the directory is written or replaced. Events are debounced so one
// re-extraction triggers one reload.
func (fs *FolderSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(fs.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", fs.opts.Dir, err)
	}
	fs.opts.Logger.Printf("Watching %s for dump changes", fs.opts.Dir)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !fs.isDumpFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fs.opts.Debounce)
			} else {
				timer.Reset(fs.opts.Debounce)
			}

		case <-timerC:
			timer = nil
			fs.opts.Logger.Printf("Dump changed, reloading")
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fs.opts.Logger.Printf("watch error: %v", err)
		}
	}
}

func (fs *FolderSource) isDumpFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	switch name {
	case MessagesFile, CallsFile, ContactsFile, DeviceFile:
		return true
	}
	return false
}
