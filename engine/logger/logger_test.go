package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)
	SetLevel(Notice)

	log := New("test")
	log.Info("hidden")
	log.Noticef("shown %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
	assert.Contains(t, buf.String(), "[test]")

	SetLevel(Debug)
	defer SetLevel(Notice)
	log.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, Warning, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, Notice, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
