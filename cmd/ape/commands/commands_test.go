package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"question=What is 2+2?", "context=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?", vars["question"])
	assert.Equal(t, "a=b", vars["context"], "values may contain =")

	_, err = parseVars([]string{"no-equals-sign"})
	assert.Error(t, err)

	_, err = parseVars([]string{"=value"})
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	d, err := parseWindow("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = parseWindow("24h")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	for _, bad := range []string{"", "0d", "-3h", "soon"} {
		_, err := parseWindow(bad)
		assert.Error(t, err, "window %q", bad)
	}
}

func TestCoerceValue(t *testing.T) {
	assert.Equal(t, true, coerceValue("true"))
	assert.Equal(t, false, coerceValue("FALSE"))
	assert.Equal(t, 30, coerceValue("30"))
	assert.Equal(t, 0.85, coerceValue("0.85"))
	assert.Equal(t, "openai/gpt-4o", coerceValue("openai/gpt-4o"))
}
