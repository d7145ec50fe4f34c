package corpus

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Single records are whole source files, so lines run far past the
// default scanner limit.
const (
	initialLineBuf = 1 << 20
	maxLineBytes   = 64 << 20
)

// ReadStats counts what happened to each input line.
type ReadStats struct {
	Lines     int
	Skipped   int
	Malformed int
}

// ReadFile loads every usable record from a JSONL file. Lines that are
// not valid JSON and records without usable text are counted and
// dropped; only I/O level failures surface as errors. A non-empty
// charset transcodes the file to UTF-8 while reading.
func ReadFile(path, charset string) ([]Record, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, eris.Wrapf(err, "corpus: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader, err := transcoded(f, charset)
	if err != nil {
		return nil, ReadStats{}, err
	}

	var (
		records []Record
		stats   ReadStats
	)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, initialLineBuf), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			stats.Malformed++
			continue
		}
		rec, ok := normalize(raw)
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, eris.Wrapf(err, "corpus: read %s", path)
	}
	return records, stats, nil
}

// ReadObjects loads each line as a decoded JSON object with all fields
// preserved, for commands that rewrite records rather than convert
// them. Undecodable lines are counted and dropped.
func ReadObjects(path string) ([]map[string]any, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, eris.Wrapf(err, "corpus: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var (
		objects []map[string]any
		stats   ReadStats
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, initialLineBuf), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			stats.Malformed++
			continue
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, eris.Wrapf(err, "corpus: read %s", path)
	}
	return objects, stats, nil
}

// transcoded wraps r with a charset decoder when one is requested.
func transcoded(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}
