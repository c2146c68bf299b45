package payloadfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"subgraphgen/internal/logger"
)

// Extension is appended to every payload file name.
const Extension = ".pb.zst"

// Writer stores each payload as its own file in a directory. Files are
// written under a temporary name and renamed, so readers never see a
// partial payload.
type Writer struct {
	dir string
	mu  sync.Mutex
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("payload directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Infof("Payload file writer initialized: %s", dir)
	return &Writer{dir: dir}, nil
}

// WritePayloads writes one file per payload.
func (w *Writer) WritePayloads(payloads [][]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, payload := range payloads {
		if _, err := w.writeOne(payload); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeOne(payload []byte) (string, error) {
	name := uuid.NewString() + Extension
	final := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create payload file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close payload file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to publish payload file: %w", err)
	}
	return final, nil
}

// Close is a no-op; every payload file is closed after it is written.
func (w *Writer) Close() error {
	return nil
}
