package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NewMemoryBandwidthParser returns the parser for the memory_bandwidth test
// family: CSV files with a header row of metric names. A single data row
// becomes the record; multiple rows are collected under a "results" key.
func NewMemoryBandwidthParser() Parser {
	p := &fileParser{
		testType:   "memory_bandwidth",
		extensions: []string{".csv"},
	}
	p.parse = func(data []byte, _ string) (Record, error) {
		rows, err := parseCSVRows(data)
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			if missing := missingFields(row, []string{"test_name", "read_bw", "write_bw"}); len(missing) > 0 {
				return nil, errors.Errorf("result is missing required fields %v", missing)
			}
		}

		var record Record
		if len(rows) == 1 {
			record = rows[0]
		} else {
			collected := make([]interface{}, 0, len(rows))
			for _, row := range rows {
				collected = append(collected, map[string]interface{}(row))
			}
			record = Record{"results": collected}
		}
		stampTimestamp(record)

		return record, nil
	}
	return p
}

func parseCSVRows(data []byte) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV header")
	}

	rows := []Record{}
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading CSV row")
		}
		if len(cells) != len(header) {
			return nil, errors.Errorf("CSV row has %d cells, header has %d", len(cells), len(header))
		}

		row := Record{}
		for idx, name := range header {
			row[name] = convertCSVCell(cells[idx])
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New("CSV file has no data rows")
	}

	return rows, nil
}

// convertCSVCell types a CSV cell: empty cells become nil, then integer,
// float, and boolean conversions are tried in order, falling back to the
// raw string.
func convertCSVCell(value string) interface{} {
	if value == "" {
		return nil
	}

	if !strings.Contains(value, ".") {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	} else if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	return value
}
