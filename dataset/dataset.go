// Package dataset loads example records from JSONL or CSV files and
// slices them into batches for prompt presentation.
package dataset

import (
	"encoding/json"
	"strings"

	"github.com/prompteng/ape/errors"
)

// Example is one dataset record
type Example map[string]any

// Batch is an ordered group of examples presented together in one prompt
type Batch []Example

// Render serializes the batch for prompt interpolation: one compact JSON
// object per line. Key order inside each object is deterministic
// (lexicographic, the encoding/json map order), so the same batch always
// renders to the same text.
func (b Batch) Render() (string, error) {
	var sb strings.Builder
	for i, ex := range b {
		line, err := json.Marshal(ex)
		if err != nil {
			return "", errors.Wrapf(err, "rendering example %d", i)
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(line)
	}
	return sb.String(), nil
}

// Split slices examples into ordered batches of at most size examples.
// The final batch may be short.
func Split(examples []Example, size int) ([]Batch, error) {
	if size < 1 {
		return nil, errors.Newf("batch size must be positive, got %d", size)
	}
	batches := make([]Batch, 0, (len(examples)+size-1)/size)
	for start := 0; start < len(examples); start += size {
		end := start + size
		if end > len(examples) {
			end = len(examples)
		}
		batches = append(batches, Batch(examples[start:end]))
	}
	return batches, nil
}

// Shards distributes batches round-robin into at most n disjoint groups.
// Every batch lands in exactly one shard; empty shards are dropped, so
// fewer batches than shards yields one shard per batch.
func Shards(batches []Batch, n int) [][]Batch {
	if n < 1 {
		n = 1
	}
	if n > len(batches) {
		n = len(batches)
	}
	if n == 0 {
		return nil
	}
	shards := make([][]Batch, n)
	for i, b := range batches {
		shards[i%n] = append(shards[i%n], b)
	}
	return shards
}
