package transport

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// ErrIO is wrapped by inbox and outbox file failures.
var ErrIO = errors.New("io error")

// OutboxPerm is the permission given to a newly created outbox file.
const OutboxPerm os.FileMode = 0o644

// ReadInbox loads the whole inbox file.
func ReadInbox(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read inbox: %w", ErrIO, err)
	}
	return data, nil
}

// WriteOutbox replaces the outbox file with data. Readers observe either the
// previous contents or all of data, never a partial write.
func WriteOutbox(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, OutboxPerm); err != nil {
		return fmt.Errorf("%w: write outbox: %w", ErrIO, err)
	}
	return nil
}
