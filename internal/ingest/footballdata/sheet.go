package footballdata

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sheet is one season file, with every row aligned to Header.
type Sheet struct {
	Source string
	Header []string
	Rows   [][]string
}

// ReadSheet parses a season CSV. Unnamed trailing columns and blank lines
// are dropped; short rows are padded.
func ReadSheet(r io.Reader) (*Sheet, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// keep holds the indexes of named columns.
	var keep []int
	sheet := &Sheet{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		keep = append(keep, i)
		sheet.Header = append(sheet.Header, name)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(sheet.Rows)+1, err)
		}
		if blank(record) {
			continue
		}
		row := make([]string, len(keep))
		for j, i := range keep {
			if i < len(record) {
				row[j] = strings.TrimSpace(record[i])
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Combine unions the columns of every sheet, in order of first appearance,
// and stacks their rows. Cells for columns a sheet lacks are left empty.
func Combine(sheets []*Sheet) ([]string, [][]string) {
	index := make(map[string]int)
	var header []string
	for _, s := range sheets {
		for _, name := range s.Header {
			if _, ok := index[name]; !ok {
				index[name] = len(header)
				header = append(header, name)
			}
		}
	}

	var rows [][]string
	for _, s := range sheets {
		for _, record := range s.Rows {
			row := make([]string, len(header))
			for j, name := range s.Header {
				row[index[name]] = record[j]
			}
			rows = append(rows, row)
		}
	}
	return header, rows
}

// WriteCSV writes a header and rows as CSV.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
