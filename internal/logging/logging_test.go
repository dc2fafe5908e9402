package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "IRON****WXYZ", MaskKey("IRON-ABCD-EFGH-WXYZ"))
	assert.Equal(t, "****", MaskKey("SHORT"))
	assert.Equal(t, "****", MaskKey(""))
}

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "warn", "json"))

	log.Info().Msg("dropped")
	log.Warn().Str("license_key", "IRON****WXYZ").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "IRON****WXYZ", entry["license_key"])
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	assert.Error(t, SetupWriter(&buf, "loud", "json"))
	assert.Error(t, SetupWriter(&buf, "info", "xml"))
}
