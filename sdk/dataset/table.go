// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package dataset holds the in-memory tables passed between pipeline stages.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrLengthMismatch = errors.New("length mismatch")
	ErrEmpty          = errors.New("empty csv: missing header row")
)

// Table is an ordered set of rows with named columns. Cells are kept as
// the raw text read from the file.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of name in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// String renders the table the way a CSV preview would look.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.Columns, ","))
	for _, row := range t.Rows {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(row, ","))
	}
	return sb.String()
}

// ReadCSV parses a header row followed by data rows.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Columns: header}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes the header and all rows.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteCSVFile overwrites path with t, creating parent directories.
func WriteCSVFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed writing %s: %w", path, err)
	}
	return f.Close()
}

// Predictions pairs ids with predictions by position into a two-column
// table. Both slices must have the same length.
func Predictions(ids, preds []string, idColumn, predColumn string) (*Table, error) {
	if len(ids) != len(preds) {
		return nil, fmt.Errorf("%w: %d rows but %d predictions", ErrLengthMismatch, len(ids), len(preds))
	}
	t := &Table{
		Columns: []string{idColumn, predColumn},
		Rows:    make([][]string, len(ids)),
	}
	for i := range ids {
		t.Rows[i] = []string{ids[i], preds[i]}
	}
	return t, nil
}
