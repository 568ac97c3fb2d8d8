package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	log.Info().Msg("should be filtered out")
	assert.Empty(t, buf.String())

	log.Warn().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestNewConsoleOutputDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	log.Debug().Msg("filtered")
	assert.Empty(t, buf.String())

	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
