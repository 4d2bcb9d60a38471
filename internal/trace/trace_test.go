package trace

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
)

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "datagrams.snappy")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	w.Record(123, DirSend, "[::1]:32422", []byte{0xC5, 0x87, 0x70, 0xF2})
	w.Record(456, DirRecv, "[::1]:50000", []byte("hello"))
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	//1.- Read the journal back through the snappy framing.
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(snappy.NewReader(file))

	var lines []record
	for scanner.Scan() {
		var r record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("bad journal line: %v", err)
		}
		lines = append(lines, r)
	}
	if len(lines) != 2 {
		t.Fatalf("journal has %d records, want 2", len(lines))
	}
	if lines[0].Dir != DirSend || lines[0].AtMs != 123 || lines[0].Size != 4 {
		t.Fatalf("first record wrong: %+v", lines[0])
	}
	payload, err := base64.StdEncoding.DecodeString(lines[1].Payload)
	if err != nil || string(payload) != "hello" {
		t.Fatalf("payload did not survive: %q %v", payload, err)
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var w *Writer
	w.Record(1, DirSend, "", nil)
	if err := w.Close(); err != nil {
		t.Fatalf("nil close errored: %v", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := NewWriter(""); err == nil {
		t.Fatalf("empty path accepted")
	}
}
