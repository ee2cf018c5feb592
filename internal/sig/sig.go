// Package sig computes comparable signatures of tabular results and the
// match predicate used by the differential validator.
//
// A signature is a compact fingerprint: ordered column names, ordered dtype
// names, row count, and a content hash of a canonical serialization of a
// bounded row sample. Two backends agree when columns, row count, and sample
// hash all match; dtype lists are computed and reported but deliberately
// excluded from the match predicate, since independent engines legitimately
// disagree on inferred types while holding identical content.
package sig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pipeweld/pipeweld/internal/tabular"
)

// DefaultSampleLimit bounds the number of rows folded into the sample hash.
const DefaultSampleLimit = 200

// DomainSample is the domain-separation prefix for sample hashes. The
// version suffix enables future algorithm migration; the null-byte separator
// in hashing prevents domain/data boundary ambiguity.
const DomainSample = "pipeweld/sample/v1"

// Signature is the comparable fingerprint of one result table.
type Signature struct {
	Columns    []string `json:"columns"`
	DTypes     []string `json:"dtypes"`
	RowCount   int      `json:"row_count"`
	SampleHash string   `json:"sample_hash"`
}

// Compute builds the signature of a table. sampleLimit <= 0 falls back to
// DefaultSampleLimit.
func Compute(t tabular.Table, sampleLimit int) Signature {
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	sample := t.Head(sampleLimit)

	h := sha256.New()
	h.Write([]byte(DomainSample))
	h.Write([]byte{0x00})
	h.Write([]byte(canonicalCSV(sample)))

	return Signature{
		Columns:    t.Columns,
		DTypes:     t.DTypes(),
		RowCount:   t.RowCount(),
		SampleHash: hex.EncodeToString(h.Sum(nil)),
	}
}

// Compare reports whether two signatures match and, on mismatch, the first
// failing dimension with the literal differing values. Dimensions are
// checked in order: columns (names and order), row count, sample hash.
// DTypes never fail a comparison.
func Compare(a, b Signature) (bool, string) {
	if !equalStrings(a.Columns, b.Columns) {
		return false, fmt.Sprintf("Columns differ.\nA: %v\nB: %v", a.Columns, b.Columns)
	}
	if a.RowCount != b.RowCount {
		return false, fmt.Sprintf("Row count differs. A=%d B=%d", a.RowCount, b.RowCount)
	}
	if a.SampleHash != b.SampleHash {
		return false, "Sample hash differs (first rows content mismatch)."
	}
	return true, "Match."
}

// canonicalCSV serializes a table for hashing: header row then data rows,
// comma-separated, LF line endings, cells rendered by tabular.FormatCell and
// NFC-normalized so that visually identical text hashes identically
// regardless of the producing backend's Unicode composition.
//
// Cells containing separators are quoted the way encoding/csv would quote
// them, keeping the serialization unambiguous.
func canonicalCSV(t tabular.Table) string {
	var b strings.Builder
	writeRecord(&b, t.Columns)
	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j := range t.Columns {
			if j < len(row) {
				cells[j] = tabular.FormatCell(row[j])
			} else {
				cells[j] = ""
			}
		}
		writeRecord(&b, cells)
	}
	return b.String()
}

func writeRecord(b *strings.Builder, cells []string) {
	for j, cell := range cells {
		if j > 0 {
			b.WriteByte(',')
		}
		b.WriteString(canonicalCell(cell))
	}
	b.WriteByte('\n')
}

func canonicalCell(s string) string {
	s = norm.NFC.String(s)
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
