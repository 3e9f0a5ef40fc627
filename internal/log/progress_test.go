package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, zerolog.InfoLevel, true)
	logger.Info().Str("k", "v").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "v", entry["k"])
}

func TestSetup_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, zerolog.WarnLevel, true)
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestProgress_StepsAndFinish(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, zerolog.InfoLevel, true)

	p := NewProgress(logger, "scenarios", 3)
	p.Step("Parallel Up")
	p.Step("Parallel Down")
	p.Step("Steepener")
	p.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "progress", first["message"])
	assert.Equal(t, "Parallel Up", first["step"])
	assert.Equal(t, float64(1), first["done"])
	assert.Equal(t, float64(3), first["total"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, "complete", last["message"])
	assert.Equal(t, float64(3), last["done"])
}
