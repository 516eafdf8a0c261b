package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONL(t *testing.T) {
	input := `{"question": "a", "answer": 1}

{"question": "b", "answer": 2}
`
	examples, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "a", examples[0]["question"])
	assert.Equal(t, float64(2), examples[1]["answer"])
}

func TestReadJSONL_MalformedLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"ok\": true}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadJSONL_Empty(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("\n\n"))
	require.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	input := "question,answer\nwhat,42\nwho, me\n"
	examples, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, Example{"question": "what", "answer": "42"}, examples[0])
	assert.Equal(t, Example{"question": "who", "answer": "me"}, examples[1])
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n"))
	require.Error(t, err)
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	jsonlPath := filepath.Join(dir, "data.jsonl")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(`{"x": 1}`+"\n"), 0o644))
	examples, err := Load(jsonlPath)
	require.NoError(t, err)
	assert.Len(t, examples, 1)

	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("x\n1\n"), 0o644))
	examples, err = Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, examples, 1)

	txtPath := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hello"), 0o644))
	_, err = Load(txtPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dataset format")
}

func TestBatchRender_Deterministic(t *testing.T) {
	batch := Batch{
		{"b": 2, "a": 1},
		{"text": "hi"},
	}

	first, err := batch.Render()
	require.NoError(t, err)
	second, err := batch.Render()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "{\"a\":1,\"b\":2}\n{\"text\":\"hi\"}", first)
}

func TestSplit(t *testing.T) {
	examples := []Example{{"i": 1}, {"i": 2}, {"i": 3}, {"i": 4}, {"i": 5}}

	batches, err := Split(examples, 2)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, examples[0], batches[0][0])
	assert.Equal(t, examples[4], batches[2][0])

	_, err = Split(examples, 0)
	require.Error(t, err)
}

func TestShards(t *testing.T) {
	batches := []Batch{
		{{"i": 1}}, {{"i": 2}}, {{"i": 3}}, {{"i": 4}}, {{"i": 5}},
	}

	shards := Shards(batches, 2)
	require.Len(t, shards, 2)
	assert.Len(t, shards[0], 3)
	assert.Len(t, shards[1], 2)

	// Disjoint and complete
	total := 0
	for _, s := range shards {
		total += len(s)
	}
	assert.Equal(t, len(batches), total)

	// More shards than batches collapses to one batch per shard
	shards = Shards(batches[:2], 8)
	assert.Len(t, shards, 2)

	assert.Nil(t, Shards(nil, 4))
}
