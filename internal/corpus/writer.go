package corpus

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// Line is the uniform output schema: every emitted line is exactly
// {"text": "<string>"} whether it carries an original or a converted
// example.
type Line struct {
	Text string `json:"text"`
}

// Writer emits JSONL records. HTML escaping is disabled so sentinel
// tags and code operators survive byte for byte.
type Writer struct {
	f     *os.File
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
}

// NewWriter creates or truncates the output file.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: create %s", path)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{f: f, buf: buf, enc: enc}, nil
}

// WriteText emits one {"text": ...} line.
func (w *Writer) WriteText(text string) error {
	return w.writeValue(Line{Text: text})
}

// WriteObject emits an arbitrary record, used by commands that carry
// extra fields through (split markers, renamed variants). Map keys
// marshal in sorted order, which keeps reruns byte-identical.
func (w *Writer) WriteObject(obj any) error {
	return w.writeValue(obj)
}

func (w *Writer) writeValue(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return eris.Wrapf(err, "corpus: write %s", w.f.Name())
	}
	w.count++
	return nil
}

// Count returns the number of lines written so far.
func (w *Writer) Count() int { return w.count }

// Close flushes and closes the output file. Write errors surface here
// at the latest.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close() //nolint:errcheck
		return eris.Wrapf(err, "corpus: flush %s", w.f.Name())
	}
	if err := w.f.Close(); err != nil {
		return eris.Wrapf(err, "corpus: close %s", w.f.Name())
	}
	return nil
}
