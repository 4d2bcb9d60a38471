// Package trace journals raw datagrams to disk for protocol debugging. The
// journal is a snappy-framed stream of JSON lines, one per datagram, cheap
// enough to leave enabled on a busy server.
package trace

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// Direction tags a journal record.
const (
	DirSend = "send"
	DirRecv = "recv"
)

type record struct {
	AtMs    int64  `json:"at_ms"`
	Dir     string `json:"dir"`
	Peer    string `json:"peer"`
	Size    int    `json:"size"`
	Payload string `json:"payload"`
}

// Writer appends datagram records to one journal file.
type Writer struct {
	file   *os.File
	stream *snappy.Writer
}

// NewWriter opens (or creates) the journal at path.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("trace path must be provided")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{file: file, stream: snappy.NewBufferedWriter(file)}, nil
}

// Record appends one datagram. A nil writer is a no-op so call sites stay
// unconditional.
func (w *Writer) Record(atMs int64, dir, peer string, payload []byte) {
	if w == nil || w.stream == nil {
		return
	}
	line, err := json.Marshal(record{
		AtMs:    atMs,
		Dir:     dir,
		Peer:    peer,
		Size:    len(payload),
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return
	}
	_, _ = w.stream.Write(append(line, '\n'))
}

// Close flushes and releases the journal.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	if w.stream != nil {
		if err := w.stream.Close(); err != nil {
			_ = w.file.Close()
			return err
		}
	}
	return w.file.Close()
}
