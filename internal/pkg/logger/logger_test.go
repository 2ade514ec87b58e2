package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.WithFields(Fields{"item_id": 7, "total_reviews": 2}).Error("Recompute failed", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "Recompute failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(7), entry["item_id"])
	assert.Equal(t, float64(2), entry["total_reviews"])
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.SetLevel("debug")
	log.With("op", "create").Debugf("visible %d", 1)
	assert.Contains(t, buf.String(), "visible 1")
	assert.Contains(t, buf.String(), `"op":"create"`)

	buf.Reset()
	log.SetLevel("not-a-level")
	log.Debug("still visible")
	assert.Contains(t, buf.String(), "still visible")
}

func TestLogger_TestEnvIsSilent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("test", &buf)

	log.Info("nothing")
	log.Warnf("nothing %s", "here")

	assert.Zero(t, buf.Len())
}
