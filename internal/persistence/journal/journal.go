// Package journal persists the frame-event stream as zstd-compressed JSONL,
// one file per run. The first line is a header carrying the config digest,
// so a journal can always be matched to the exact world it recorded.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hedgerow/hedgerow/internal/core/events/bus"
)

const (
	kindHeader = "header"
	kindEvent  = "event"
)

var ErrClosed = errors.New("journal: closed")

// Record is one journaled frame event.
type Record struct {
	Frame     uint64    `json:"frame"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"ts"`
	Data      any       `json:"data,omitempty"`
}

// Header is the first line of every journal file.
type Header struct {
	ConfigDigest string    `json:"config_digest"`
	StartedAt    time.Time `json:"started_at"`
}

type line struct {
	Kind   string      `json:"kind"`
	Header *Header     `json:"header,omitempty"`
	Record *recordLine `json:"record,omitempty"`
}

type recordLine struct {
	Frame     uint64          `json:"frame"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"ts"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Writer appends records to one run's journal file. Safe for concurrent
// use: the bus handler and the closer race on shutdown.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	closed bool
	path   string
}

// New creates the run's journal file under dir and writes the header.
func New(dir string, configDigest uint64, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s.jsonl.zst", now.UTC().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	w := &Writer{
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
		path: path,
	}
	err = w.writeLine(line{Kind: kindHeader, Header: &Header{
		ConfigDigest: fmt.Sprintf("%016x", configDigest),
		StartedAt:    now.UTC(),
	}})
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the journal file's location.
func (w *Writer) Path() string { return w.path }

// Append journals one record.
func (w *Writer) Append(rec Record) error {
	data, err := marshalData(rec.Data)
	if err != nil {
		return fmt.Errorf("journal: encode %s: %w", rec.Topic, err)
	}
	return w.writeLine(line{Kind: kindEvent, Record: &recordLine{
		Frame:     rec.Frame,
		Topic:     rec.Topic,
		Timestamp: rec.Timestamp,
		Data:      data,
	}})
}

// Attach subscribes the writer to every bus event. Cancel the returned
// subscription before closing the writer.
func (w *Writer) Attach(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(bus.TypeAny, func(e bus.Event) error {
		return w.Append(Record{
			Frame:     e.Frame(),
			Topic:     e.Type(),
			Timestamp: e.Timestamp(),
			Data:      e.Data(),
		})
	})
}

func (w *Writer) writeLine(l line) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.w.Write(raw); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Further appends return ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	if err := w.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := w.enc.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := w.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func marshalData(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Read decodes a whole journal file. Record data comes back as raw JSON;
// replayers decode it against the topic.
func Read(path string) (Header, []Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, nil, fmt.Errorf("journal: %w", err)
	}
	defer dec.Close()

	var header Header
	var records []Record
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			return Header{}, nil, fmt.Errorf("journal: corrupt line: %w", err)
		}
		switch {
		case first && l.Kind == kindHeader && l.Header != nil:
			header = *l.Header
		case l.Kind == kindEvent && l.Record != nil:
			records = append(records, Record{
				Frame:     l.Record.Frame,
				Topic:     l.Record.Topic,
				Timestamp: l.Record.Timestamp,
				Data:      l.Record.Data,
			})
		default:
			return Header{}, nil, fmt.Errorf("journal: unexpected %q line", l.Kind)
		}
		first = false
	}
	if err := sc.Err(); err != nil {
		return Header{}, nil, fmt.Errorf("journal: %w", err)
	}
	return header, records, nil
}
