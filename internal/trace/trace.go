// Package trace encodes notification streams canonically for golden files,
// digests and offline replay.
//
// The canonical form keeps only what takes part in record equality: the
// kind and the four params. Process and child identifiers are dropped, so two
// streams the comparator treats as equal encode to identical bytes and
// identical digests.
//
// Layout is one record per line so golden-file diffs point at the record
// that changed. Strings are NFC-normalized and never HTML-escaped.
package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/a11yoracle/internal/notify"
)

// DomainTrace prefixes stream digests. The version suffix allows the
// encoding to change without colliding with old digests.
const DomainTrace = "a11yoracle/trace/v1"

// Step is one scenario step's pair of streams.
type Step struct {
	Name     string          `json:"name"`
	Expected []notify.Record `json:"expected"`
	Captured []notify.Record `json:"captured,omitempty"`
}

// Document is a whole scenario's trace.
type Document struct {
	Scenario string `json:"scenario"`
	Steps    []Step `json:"steps"`
}

// Marshal encodes records canonically.
func Marshal(recs []notify.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeRecords(&buf, recs, ""); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalDocument encodes a scenario trace canonically.
//
// Object keys appear in sorted order. Steps without captured records omit
// the "captured" key.
func MarshalDocument(d Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\"scenario\":")
	if err := writeString(&buf, d.Scenario); err != nil {
		return nil, err
	}
	buf.WriteString(",\"steps\":[")
	for i, s := range d.Steps {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  {")
		if s.Captured != nil {
			buf.WriteString("\"captured\":")
			if err := writeRecords(&buf, s.Captured, "    "); err != nil {
				return nil, fmt.Errorf("step %d captured: %w", i, err)
			}
			buf.WriteByte(',')
		}
		buf.WriteString("\"expected\":")
		if err := writeRecords(&buf, s.Expected, "    "); err != nil {
			return nil, fmt.Errorf("step %d expected: %w", i, err)
		}
		buf.WriteString(",\"name\":")
		if err := writeString(&buf, s.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('}')
	}
	if len(d.Steps) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]}\n")
	return buf.Bytes(), nil
}

// Unmarshal decodes a record list produced by Marshal, or any JSON array of
// records.
func Unmarshal(data []byte) ([]notify.Record, error) {
	var recs []notify.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	return recs, nil
}

// UnmarshalDocument decodes a document produced by MarshalDocument.
func UnmarshalDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode trace document: %w", err)
	}
	return d, nil
}

// Digest returns the hex SHA-256 of the canonical encoding, domain separated.
// Format: SHA256(DomainTrace + 0x00 + canonical)
func Digest(recs []notify.Record) (string, error) {
	data, err := Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Format renders records as an indexed listing for terminals and logs.
func Format(recs []notify.Record) string {
	var sb strings.Builder
	for i, r := range recs {
		fmt.Fprintf(&sb, "%4d  %s\n", i, r)
	}
	return sb.String()
}

func writeRecords(buf *bytes.Buffer, recs []notify.Record, indent string) error {
	buf.WriteByte('[')
	for i, r := range recs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		buf.WriteString(indent)
		if err := writeRecord(buf, r); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(recs) > 0 {
		buf.WriteByte('\n')
		buf.WriteString(strings.TrimSuffix(indent, "  "))
	}
	buf.WriteByte(']')
	return nil
}

func writeRecord(buf *bytes.Buffer, r notify.Record) error {
	if !r.Kind().Valid() {
		return fmt.Errorf("invalid kind %d", int(r.Kind()))
	}
	buf.WriteString("{\"kind\":")
	if err := writeString(buf, r.Kind().String()); err != nil {
		return err
	}
	p := r.Params()
	fmt.Fprintf(buf, ",\"params\":[%d,%d,%d,%d]}", p[0], p[1], p[2], p[3])
	return nil
}

// writeString writes s as an NFC-normalized JSON string without HTML
// escaping.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
