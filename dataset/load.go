package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prompteng/ape/errors"
)

// Load reads a dataset file, dispatching on the extension:
// .jsonl/.ndjson for line-delimited JSON, .csv for comma-separated
// values with a header row.
func Load(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening dataset")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, errors.Newf("unsupported dataset format %q (expected .jsonl, .ndjson or .csv)", filepath.Ext(path))
	}
}

// ReadJSONL reads one JSON object per line, skipping blank lines
func ReadJSONL(r io.Reader) ([]Example, error) {
	var examples []Example

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading dataset")
	}
	if len(examples) == 0 {
		return nil, errors.New("dataset is empty")
	}

	return examples, nil
}

// ReadCSV reads a header row followed by records; every value is a string
func ReadCSV(r io.Reader) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV header")
	}

	var examples []Example
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", len(examples)+1)
		}
		ex := make(Example, len(header))
		for i, key := range header {
			if i < len(record) {
				ex[key] = record[i]
			}
		}
		examples = append(examples, ex)
	}
	if len(examples) == 0 {
		return nil, errors.New("dataset has a header but no records")
	}

	return examples, nil
}
