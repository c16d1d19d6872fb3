package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgallion1/talkgest/internal/talktree"
)

// JSONLWriter writes one Record per line.
type JSONLWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	count  int
}

// NewJSONLWriter writes records to w. Close flushes but does not close w.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{w: bw, enc: enc}
}

// CreateJSONL creates (or truncates) path and its parent directories.
func CreateJSONL(path string) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	jw := NewJSONLWriter(f)
	jw.closer = f
	return jw, nil
}

func (j *JSONLWriter) Write(ctx context.Context, page string, trees []talktree.ConversationTree) error {
	if len(trees) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateAll(page, trees); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, t := range trees {
		if err := j.enc.Encode(Record{Page: page, Tree: t}); err != nil {
			return fmt.Errorf("encode tree: %w", err)
		}
		j.count++
	}
	return nil
}

// Count is the number of records written.
func (j *JSONLWriter) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

func (j *JSONLWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
