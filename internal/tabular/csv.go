package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV decodes a CSV document with a header row into a Table, inferring
// column types: a column whose every non-empty cell parses as an integer
// becomes int64, else float64 if every cell parses numerically, else string.
// Empty cells are nil.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}

	header := records[0]
	raw := records[1:]

	cols := make([]string, len(header))
	copy(cols, header)

	rows := make([][]any, len(raw))
	for i, rec := range raw {
		row := make([]any, len(cols))
		for j := range cols {
			if j < len(rec) {
				row[j] = rec[j]
			}
		}
		rows[i] = row
	}

	for j := range cols {
		inferColumn(rows, j)
	}
	return Table{Columns: cols, Rows: rows}, nil
}

// ReadCSVFile reads and decodes a CSV file from disk.
func ReadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSVString decodes inline CSV text.
func ReadCSVString(text string) (Table, error) {
	return ReadCSV(strings.NewReader(text))
}

// WriteCSV encodes a table as CSV with a header row. Nil cells encode as
// empty fields.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j := range t.Columns {
			if j < len(row) {
				rec[j] = FormatCell(row[j])
			} else {
				rec[j] = ""
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes a table to disk, overwriting any existing file.
func WriteCSVFile(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(f, t)
}

// inferColumn narrows string cells in column j to int64 or float64 when the
// whole column parses. Empty strings become nil either way.
func inferColumn(rows [][]any, j int) {
	allInt := true
	allFloat := true
	sawValue := false

	for _, row := range rows {
		s, ok := row[j].(string)
		if !ok || s == "" {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			allFloat = false
		}
	}

	for _, row := range rows {
		s, ok := row[j].(string)
		if !ok {
			continue
		}
		if s == "" {
			row[j] = nil
			continue
		}
		switch {
		case sawValue && allInt:
			n, _ := strconv.ParseInt(s, 10, 64)
			row[j] = n
		case sawValue && allFloat:
			f, _ := strconv.ParseFloat(s, 64)
			row[j] = f
		}
	}
}
