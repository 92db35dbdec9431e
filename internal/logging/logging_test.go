package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sh3r4rd/nyx/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "debug")

	log.WithField("pk", "FILE#abc").Info("stored record")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stored record", line["message"])
	assert.Equal(t, "FILE#abc", line["pk"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "loud")

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
