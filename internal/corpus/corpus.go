// Package corpus reads and writes the JSONL record files the toolkit
// consumes and produces. Input records carry code text under loosely
// standardized keys; the loader normalizes them once so nothing
// downstream ever re-inspects raw JSON shapes.
package corpus

import "encoding/json"

// Record is one corpus entry after normalization. Base is the record's
// primary text (the text field, falling back to code). Aux is the
// normalized llm_formatted variant; empty means absent.
type Record struct {
	Base string
	Aux  string
}

// EvalText returns the text eval conversion should use: the aux
// variant when present, else the base.
func (r Record) EvalText() string {
	if r.Aux != "" {
		return r.Aux
	}
	return r.Base
}

// rawRecord mirrors the on-disk schema. llm_formatted is duck typed
// upstream: a plain string, an object with a text field, or absent.
type rawRecord struct {
	Text         string          `json:"text"`
	Code         string          `json:"code"`
	LLMFormatted json.RawMessage `json:"llm_formatted"`
}

// normalize resolves a raw record into a Record. The second result is
// false for records with no usable text anywhere, which callers count
// as skipped rather than treat as errors.
func normalize(raw rawRecord) (Record, bool) {
	rec := Record{Base: raw.Text, Aux: auxText(raw.LLMFormatted)}
	if rec.Base == "" {
		rec.Base = raw.Code
	}
	if rec.Base == "" && rec.Aux == "" {
		return Record{}, false
	}
	return rec, true
}

// auxText resolves the duck-typed llm_formatted field. Shapes other
// than a string or an object with a text string count as absent.
func auxText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Text
	}
	return ""
}

// TextOf returns the working text of a decoded record object,
// preferring text over code. Commands that rewrite whole records
// (check, augment) use this without going through normalization.
func TextOf(obj map[string]any) string {
	if s, ok := obj["text"].(string); ok && s != "" {
		return s
	}
	if s, ok := obj["code"].(string); ok {
		return s
	}
	return ""
}
