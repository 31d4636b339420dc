package hosttest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/amele-go/internal/codec"
	"github.com/ggoodman/amele-go/internal/config"
	"github.com/ggoodman/amele-go/wire"
)

// FileHost lays out an inbox and outbox in a per-test directory.
type FileHost struct {
	dir    string
	inbox  string
	outbox string
}

// NewFileHost writes envelope to an inbox file under t.TempDir(). A Raw
// envelope is written verbatim; a nil envelope leaves the inbox unconfigured.
func NewFileHost(t *testing.T, envelope any) *FileHost {
	t.Helper()
	dir := t.TempDir()
	h := &FileHost{dir: dir, outbox: filepath.Join(dir, "outbox.msgpack")}
	if envelope == nil {
		return h
	}

	data, ok := envelope.(Raw)
	if !ok {
		var err error
		data, err = codec.Marshal(envelope)
		if err != nil {
			t.Fatalf("hosttest: encode envelope: %v", err)
		}
	}
	h.inbox = filepath.Join(dir, "inbox.msgpack")
	if err := os.WriteFile(h.inbox, data, 0o600); err != nil {
		t.Fatalf("hosttest: write inbox: %v", err)
	}
	return h
}

// InboxPath is the inbox file, or "" when no envelope was given.
func (h *FileHost) InboxPath() string { return h.inbox }

// OutboxPath is where the guest is expected to respond.
func (h *FileHost) OutboxPath() string { return h.outbox }

// Config returns a file-pair configuration pointing at this host's files.
func (h *FileHost) Config() config.Config {
	return config.Config{InboxFile: h.inbox, OutboxFile: h.outbox}
}

// ReadOutbox decodes the current outbox contents.
func (h *FileHost) ReadOutbox() (wire.Map, error) {
	data, err := os.ReadFile(h.outbox)
	if err != nil {
		return nil, err
	}
	var m wire.Map
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// WaitOutbox blocks until the outbox exists and returns its decoded contents.
func (h *FileHost) WaitOutbox(ctx context.Context) (wire.Map, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hosttest: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(h.dir); err != nil {
		return nil, fmt.Errorf("hosttest: watch %s: %w", h.dir, err)
	}

	// The outbox may have been written before the watch was established.
	if m, err := h.ReadOutbox(); err == nil {
		return m, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil, errors.New("hosttest: watcher closed")
			}
			if filepath.Clean(ev.Name) != h.outbox {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			m, err := h.ReadOutbox()
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return m, err
		case err, ok := <-w.Errors:
			if !ok {
				return nil, errors.New("hosttest: watcher closed")
			}
			return nil, fmt.Errorf("hosttest: watch: %w", err)
		}
	}
}
