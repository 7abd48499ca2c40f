package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel_DefaultsToInfoOnUnknown(t *testing.T) {
	assert.Equal(t, INFO, ParseLevel("bogus"))
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
}

func TestNew_WritesJSONLineWithComponentAndFields(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log-*.jsonl")
	require.NoError(t, err)
	defer f.Close()

	l := New(Config{Level: "INFO", Output: f.Name(), Component: "riskgate", JSONFormat: true})
	l.Warn("margin low", "margin_level", 140.5)

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &line))
	assert.Equal(t, "riskgate", line["component"])
	assert.Equal(t, "margin low", line["message"])
	assert.EqualValues(t, 140.5, line["margin_level"])
}

func TestWithComponent_DoesNotMutateParent(t *testing.T) {
	base := New(Config{Level: "INFO", Output: os.DevNull, Component: "engine"})
	child := base.WithComponent("closeplan")
	assert.Equal(t, "engine", base.component)
	assert.Equal(t, "closeplan", child.component)
}

func TestGenerateTraceID_ProducesDistinctHexIDs(t *testing.T) {
	a := GenerateTraceID()
	b := GenerateTraceID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
