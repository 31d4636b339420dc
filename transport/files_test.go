package transport

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteOutbox_CreatesAndReplaces(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "outbox.bin")

	if err := WriteOutbox(path, []byte("first, and longer")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteOutbox(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("outbox = %q, want whole new contents", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestWriteOutbox_MissingDir(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing", "outbox.bin")
	if err := WriteOutbox(path, []byte("x")); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestReadInbox(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "inbox.bin")
	if err := os.WriteFile(path, []byte{0x80}, 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadInbox(path)
	if err != nil {
		t.Fatalf("ReadInbox: %v", err)
	}
	if !bytes.Equal(data, []byte{0x80}) {
		t.Fatalf("got % x", data)
	}

	_, err = ReadInbox(filepath.Join(dir, "absent"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrIO wrapping ErrNotExist, got %v", err)
	}
}
